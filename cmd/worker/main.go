package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"kb-engine/config"
	"kb-engine/internal/component/splitter"
	"kb-engine/internal/dao"
	"kb-engine/internal/database"
	"kb-engine/internal/logger"
	"kb-engine/internal/pipeline"
	"kb-engine/internal/queue"
	"kb-engine/internal/service"
	"kb-engine/internal/storage"
	"kb-engine/internal/vector"
	"kb-engine/internal/worker"

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
	manager := vector.NewManager(store, cfg.Milvus.CollectionPrefix)
	taskQueue := queue.NewRedisQueue(redisCli, cfg.Redis.KeyPrefix)
	resolver := service.NewBindingResolver(kbDao, modelDao)
	segmenter := splitter.NewSegmenter(cfg.RAG)

	ingestor := pipeline.NewIngestor(
		taskDao, kbDao, fileDao,
		resolver, manager, store,
		driver, segmenter,
		cfg.Worker.EmbedBatchSize, log,
	)

	pool := worker.NewPool(taskQueue, ingestor, taskDao, cfg.Worker, log)
	pool.Start(ctx)

	<-ctx.Done()
	log.Info("收到退出信号，等待worker完成手头任务")

	grace := time.Duration(cfg.Worker.ShutdownGraceSeconds) * time.Second
	if pool.Wait(grace) {
		log.Info("worker全部退出")
	} else {
		log.Warn("超过宽限期，强制退出", zap.Duration("grace", grace))
	}
}
