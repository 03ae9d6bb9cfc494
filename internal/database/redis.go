package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kb-engine/config"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce     sync.Once
	redisInstance *redis.Client
	redisErr      error
)

// InitRedis 初始化 Redis 客户端（任务队列使用）
func InitRedis(ctx context.Context) (*redis.Client, error) {
	redisOnce.Do(func() {
		cfg := config.GetConfig().Redis
		cli := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := cli.Ping(pingCtx).Err(); err != nil {
			redisErr = fmt.Errorf("无法连接到Redis: %w", err)
			return
		}
		redisInstance = cli
	})
	return redisInstance, redisErr
}

// GetRedisClient 获取已初始化的客户端
func GetRedisClient() *redis.Client {
	return redisInstance
}
