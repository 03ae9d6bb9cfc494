package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"kb-engine/config"
	"kb-engine/internal/component/rerank"
	"kb-engine/internal/controller"
	"kb-engine/internal/dao"
	"kb-engine/internal/database"
	"kb-engine/internal/logger"
	"kb-engine/internal/middleware"
	"kb-engine/internal/queue"
	"kb-engine/internal/retrieval"
	"kb-engine/internal/router"
	"kb-engine/internal/service"
	"kb-engine/internal/storage"
	"kb-engine/internal/vector"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.InitConfig()
	cfg := config.GetConfig()

	log, err := logger.Init(cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB()
	if err != nil {
		log.Fatal("数据库初始化失败", zap.Error(err))
	}
	redisCli, err := database.InitRedis(ctx)
	if err != nil {
		log.Fatal("Redis初始化失败", zap.Error(err))
	}
	milvusCli, err := database.InitMilvus(ctx)
	if err != nil {
		log.Fatal("Milvus初始化失败", zap.Error(err))
	}
	driver, err := storage.NewDriver(cfg.Storage)
	if err != nil {
		log.Fatal("对象存储初始化失败", zap.Error(err))
	}

	fileDao := dao.NewFileDao(db)
	kbDao := dao.NewKnowledgeBaseDao(db)
	taskDao := dao.NewParseTaskDao(db)
	modelDao := dao.NewModelDao(db)

	store := vector.NewMilvusStore(milvusCli, cfg.Milvus)
	taskQueue := queue.NewRedisQueue(redisCli, cfg.Redis.KeyPrefix)
	resolver := service.NewBindingResolver(kbDao, modelDao)

	var reranker rerank.Reranker
	if cfg.Rerank.Enabled {
		reranker = rerank.NewHTTPReranker(cfg.Rerank)
	}
	engine := retrieval.NewEngine(resolver, store, store, reranker,
		cfg.Retrieval, cfg.Milvus.CollectionPrefix, log)

	fileService := service.NewFileService(fileDao, driver)
	kbService := service.NewKBService(kbDao, fileDao, taskDao, modelDao,
		taskQueue, store, cfg.Milvus.CollectionPrefix, log)
	taskService := service.NewTaskService(taskDao)
	modelService := service.NewModelService(modelDao)

	fc := controller.NewFileController(fileService)
	kc := controller.NewKBController(kbService, engine)
	tc := controller.NewTaskController(taskService)
	mc := controller.NewModelController(modelService)

	r := gin.Default()
	r.Use(middleware.SetupCORS())
	router.SetUpRouters(r, fc, kc, tc, mc)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go func() {
		log.Info("HTTP服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("收到退出信号，开始关闭")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP服务关闭超时", zap.Error(err))
	}
	log.Info("服务已退出")
}
