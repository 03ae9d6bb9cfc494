package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const pullBlockTimeout = time.Second

// RedisQueue 基于Redis的任务队列
// pending为待处理列表，processing为处理中列表（崩溃恢复用），
// delayed为延迟重试的有序集合，score为到期时间戳
type RedisQueue struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisQueue 创建Redis任务队列
func NewRedisQueue(client *redis.Client, keyPrefix string) *RedisQueue {
	if keyPrefix == "" {
		keyPrefix = "kbengine:"
	}
	return &RedisQueue{
		client:    client,
		keyPrefix: keyPrefix + "parse:",
	}
}

func (q *RedisQueue) pendingKey() string    { return q.keyPrefix + "pending" }
func (q *RedisQueue) processingKey() string { return q.keyPrefix + "processing" }
func (q *RedisQueue) delayedKey() string    { return q.keyPrefix + "delayed" }

// Push 投递任务到pending队列
func (q *RedisQueue) Push(ctx context.Context, msg *Message) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now()
	}
	payload, err := sonic.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化任务消息失败: %w", err)
	}
	if err := q.client.LPush(ctx, q.pendingKey(), string(payload)).Err(); err != nil {
		return fmt.Errorf("任务入队失败: %w", err)
	}
	return nil
}

// Pull 阻塞拉取；先将到期的延迟任务搬回pending，再从pending原子移动到processing
func (q *RedisQueue) Pull(ctx context.Context) (*Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := q.promoteDelayed(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return nil, err
		}

		raw, err := q.client.BRPopLPush(ctx, q.pendingKey(), q.processingKey(), pullBlockTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue // 超时无任务，检查ctx后继续等待
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("拉取任务失败: %w", err)
		}

		msg := &Message{}
		if err := sonic.Unmarshal([]byte(raw), msg); err != nil {
			// 损坏的消息直接丢弃，避免阻塞队列
			q.client.LRem(ctx, q.processingKey(), 1, raw)
			return nil, fmt.Errorf("反序列化任务消息失败: %w", err)
		}
		msg.raw = raw
		return msg, nil
	}
}

// Ack 从processing队列移除
func (q *RedisQueue) Ack(ctx context.Context, msg *Message) error {
	if err := q.client.LRem(ctx, q.processingKey(), 1, msg.raw).Err(); err != nil {
		return fmt.Errorf("任务确认失败: %w", err)
	}
	return nil
}

// Nack 从processing移除并放入延迟集合，attempts加一
func (q *RedisQueue) Nack(ctx context.Context, msg *Message, delay time.Duration) error {
	retry := *msg
	retry.Attempts++
	payload, err := sonic.Marshal(&retry)
	if err != nil {
		return fmt.Errorf("序列化任务消息失败: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, msg.raw)
	pipe.ZAdd(ctx, q.delayedKey(), redis.Z{
		Score:  float64(time.Now().Add(delay).UnixMilli()),
		Member: string(payload),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("任务重新入队失败: %w", err)
	}
	return nil
}

// promoteDelayed 将到期的延迟任务搬回pending队列
func (q *RedisQueue) promoteDelayed(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("读取延迟任务失败: %w", err)
	}

	for _, payload := range due {
		// 先移除再入队：ZRem返回0说明被其他worker抢先搬运
		removed, err := q.client.ZRem(ctx, q.delayedKey(), payload).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.pendingKey(), payload).Err(); err != nil {
			return err
		}
	}
	return nil
}
