package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"kb-engine/config"
	"kb-engine/internal/dao"
	"kb-engine/internal/model"
	"kb-engine/internal/pipeline"
	"kb-engine/internal/queue"

	"go.uber.org/zap"
)

// ackTimeout 队列确认操作独立于任务context，避免shutdown时无法落账
const ackTimeout = 10 * time.Second

// Pool 解析任务消费池，固定数量goroutine竞争拉取队列任务
type Pool struct {
	queue    queue.TaskQueue
	ingestor pipeline.Ingestor
	taskDao  dao.ParseTaskDao
	cfg      config.WorkerConfig
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewPool 创建消费池
func NewPool(q queue.TaskQueue, ing pipeline.Ingestor, taskDao dao.ParseTaskDao, cfg config.WorkerConfig, logger *zap.Logger) *Pool {
	if cfg.Count <= 0 {
		cfg.Count = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelaySeconds <= 0 {
		cfg.RetryDelaySeconds = 2
	}
	return &Pool{
		queue:    q,
		ingestor: ing,
		taskDao:  taskDao,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start 启动消费goroutine，ctx取消后各worker完成手头任务退出
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Count; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("worker池已启动", zap.Int("count", p.cfg.Count))
}

// Wait 等待所有worker退出，超过宽限期返回false
func (p *Pool) Wait(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With(zap.Int("worker", id))

	for {
		msg, err := p.queue.Pull(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, queue.ErrClosed) {
				log.Info("worker退出")
				return
			}
			log.Error("拉取任务失败", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		p.handle(ctx, msg, log)
	}
}

func (p *Pool) handle(ctx context.Context, msg *queue.Message, log *zap.Logger) {
	log = log.With(zap.String("task_id", msg.TaskID), zap.Int("attempts", msg.Attempts))

	err := p.ingestor.Run(ctx, msg)

	ackCtx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()

	switch {
	case err == nil:
		p.finish(ackCtx, msg, model.TaskStatusDone, "")
		p.ack(ackCtx, msg, log)

	case errors.Is(err, pipeline.ErrCancelled):
		// 任务状态已由取消方写入，只需出队
		log.Info("任务已取消")
		p.ack(ackCtx, msg, log)

	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// 进程退出中断：不Ack也不Nack，消息留在processing队列由回收进程重投
		log.Warn("任务被shutdown中断，等待重投", zap.Error(err))

	case pipeline.IsFatal(err):
		log.Error("任务失败（不重试）", zap.Error(err))
		p.finish(ackCtx, msg, model.TaskStatusFailed, err.Error())
		p.ack(ackCtx, msg, log)

	default:
		attemptsUsed := msg.Attempts + 1
		if attemptsUsed >= p.cfg.MaxAttempts {
			log.Error("任务失败（重试次数耗尽）", zap.Error(err), zap.Int("attempts", attemptsUsed))
			p.finish(ackCtx, msg, model.TaskStatusFailed, err.Error())
			p.ack(ackCtx, msg, log)
			return
		}

		delay := time.Duration(p.cfg.RetryDelaySeconds) * time.Second
		log.Warn("任务失败，延迟重试", zap.Error(err), zap.Duration("delay", delay))
		p.requeue(ackCtx, msg, err.Error())
		if nackErr := p.queue.Nack(ackCtx, msg, delay); nackErr != nil {
			log.Error("任务重投失败", zap.Error(nackErr))
		}
	}
}

// finish 将任务落入终态，已取消的任务不被覆盖
func (p *Pool) finish(ctx context.Context, msg *queue.Message, status, errMsg string) {
	task, err := p.taskDao.GetByID(ctx, msg.TaskID)
	if err != nil {
		p.logger.Error("读取任务失败", zap.String("task_id", msg.TaskID), zap.Error(err))
		return
	}
	if task.Status == model.TaskStatusCancelled {
		return
	}

	task.Status = status
	task.ErrorMsg = errMsg
	task.Attempts = msg.Attempts + 1
	if status == model.TaskStatusDone {
		task.Progress = 1.0
	}
	if err := p.taskDao.Update(ctx, task); err != nil {
		p.logger.Error("更新任务终态失败", zap.String("task_id", msg.TaskID), zap.Error(err))
	}
}

// requeue 重试前回写queued状态与错误信息，保留当前进度
func (p *Pool) requeue(ctx context.Context, msg *queue.Message, errMsg string) {
	task, err := p.taskDao.GetByID(ctx, msg.TaskID)
	if err != nil {
		return
	}
	if model.IsTerminalStatus(task.Status) {
		return
	}
	task.Status = model.TaskStatusQueued
	task.ErrorMsg = errMsg
	task.Attempts = msg.Attempts + 1
	if err := p.taskDao.Update(ctx, task); err != nil {
		p.logger.Error("回写任务状态失败", zap.String("task_id", msg.TaskID), zap.Error(err))
	}
}

func (p *Pool) ack(ctx context.Context, msg *queue.Message, log *zap.Logger) {
	if err := p.queue.Ack(ctx, msg); err != nil {
		log.Error("任务确认失败", zap.Error(err))
	}
}
