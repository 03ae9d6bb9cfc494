package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrFull 内存队列已满
var ErrFull = errors.New("任务队列已满")

// MemoryQueue 进程内任务队列，用于单元测试与本地开发
type MemoryQueue struct {
	mu       sync.Mutex
	pending  chan *Message
	inflight map[string]*Message
	closed   bool
}

// NewMemoryQueue 创建内存队列
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		pending:  make(chan *Message, capacity),
		inflight: make(map[string]*Message),
	}
}

func (q *MemoryQueue) Push(_ context.Context, msg *Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now()
	}
	// 非阻塞写入：满队列返回错误而不是持锁阻塞（会死锁所有队列操作）
	select {
	case q.pending <- msg:
		return nil
	default:
		return ErrFull
	}
}

func (q *MemoryQueue) Pull(ctx context.Context) (*Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-q.pending:
		if !ok {
			return nil, ErrClosed
		}
		q.mu.Lock()
		q.inflight[msg.TaskID] = msg
		q.mu.Unlock()
		return msg, nil
	}
}

func (q *MemoryQueue) Ack(_ context.Context, msg *Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, msg.TaskID)
	return nil
}

func (q *MemoryQueue) Nack(_ context.Context, msg *Message, delay time.Duration) error {
	q.mu.Lock()
	delete(q.inflight, msg.TaskID)
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}

	retry := *msg
	retry.Attempts++
	time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.closed {
			return
		}
		// 满队列时丢弃重试消息，测试/本地队列不做持久保证
		select {
		case q.pending <- &retry:
		default:
		}
	})
	return nil
}

// Close 关闭队列，Pull返回ErrClosed
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.pending)
	}
}
