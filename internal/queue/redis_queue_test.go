package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client, "test:"), mr
}

func TestRedisQueue_PushPullAck(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	msg := &Message{TaskID: "t1", DocumentID: "doc-1", KnowledgeBaseID: "kb-1"}
	require.NoError(t, q.Push(ctx, msg))

	got, err := q.Pull(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", got.TaskID)
	require.Equal(t, "doc-1", got.DocumentID)
	require.Equal(t, "kb-1", got.KnowledgeBaseID)
	require.False(t, got.EnqueuedAt.IsZero())

	// Ack前消息保留在processing队列（崩溃恢复依据）
	processing, err := mr.List("test:parse:processing")
	require.NoError(t, err)
	require.Equal(t, 1, len(processing))
	require.NoError(t, q.Ack(ctx, got))
	processing, err = mr.List("test:parse:processing")
	if err != nil {
		// miniredis删除空list的key，no such key等价于空
		require.ErrorIs(t, err, miniredis.ErrKeyNotFound)
	}
	require.Empty(t, processing)
}

func TestRedisQueue_NackIncrementsAttemptsAndDelays(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &Message{TaskID: "t1", DocumentID: "d", KnowledgeBaseID: "k"}))
	got, err := q.Pull(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, got.Attempts)

	require.NoError(t, q.Nack(ctx, got, 300*time.Millisecond))
	processing, err := mr.List("test:parse:processing")
	if err != nil {
		// miniredis删除空list的key，no such key等价于空
		require.ErrorIs(t, err, miniredis.ErrKeyNotFound)
	}
	require.Empty(t, processing)

	// 延迟到期前不可见
	pullCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = q.Pull(pullCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// 到期后重新可拉取，attempts加一
	time.Sleep(300 * time.Millisecond)
	retried, err := q.Pull(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", retried.TaskID)
	require.Equal(t, 1, retried.Attempts)
}

func TestRedisQueue_PullHonorsContextCancel(t *testing.T) {
	q, _ := newTestQueue(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.Pull(ctx)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Pull未响应取消信号")
	}
}

func TestMemoryQueue_NackRedelivers(t *testing.T) {
	q := NewMemoryQueue(8)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &Message{TaskID: "t1"}))
	got, err := q.Pull(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Nack(ctx, got, 10*time.Millisecond))

	pullCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	retried, err := q.Pull(pullCtx)
	require.NoError(t, err)
	require.Equal(t, 1, retried.Attempts)
}

func TestMemoryQueue_FullQueueRejectsPush(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &Message{TaskID: "t1"}))
	// 满队列立即报错，不能持锁阻塞
	require.ErrorIs(t, q.Push(ctx, &Message{TaskID: "t2"}), ErrFull)

	// 已入队消息不受影响，消费后恢复可写
	got, err := q.Pull(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", got.TaskID)
	require.NoError(t, q.Push(ctx, &Message{TaskID: "t2"}))
}
