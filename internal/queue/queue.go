package queue

import (
	"context"
	"errors"
	"time"
)

// ErrClosed 队列已关闭
var ErrClosed = errors.New("任务队列已关闭")

// Message 解析任务消息
type Message struct {
	TaskID          string    `json:"task_id"`
	DocumentID      string    `json:"document_id"`
	KnowledgeBaseID string    `json:"kb_id"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
	Attempts        int       `json:"attempts"` // 已投递次数

	// raw 投递时的原始载荷，Ack/Nack时用于从processing队列移除
	raw string
}

// TaskQueue 任务队列抽象
// at-least-once投递：Pull取走的消息在Ack前保留在processing队列中，
// 消费者崩溃后可由外部回收进程按租约超时重新入队
type TaskQueue interface {
	// Push 投递任务
	Push(ctx context.Context, msg *Message) error
	// Pull 阻塞拉取一个任务，ctx取消时返回ctx.Err()
	Pull(ctx context.Context) (*Message, error)
	// Ack 确认任务处理完成（成功或进入终态）
	Ack(ctx context.Context, msg *Message) error
	// Nack 任务失败，延迟delay后重新投递，attempts加一
	Nack(ctx context.Context, msg *Message, delay time.Duration) error
}
