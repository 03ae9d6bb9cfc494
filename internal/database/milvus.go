package database

import (
	"context"
	"sync"

	"kb-engine/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
)

var (
	milvusOnce     sync.Once
	milvusInstance client.Client
	milvusErr      error
)

// InitMilvus 初始化 Milvus 客户端（进程内单例）
func InitMilvus(ctx context.Context) (client.Client, error) {
	milvusOnce.Do(func() {
		milvusInstance, milvusErr = client.NewClient(ctx, client.Config{
			Address: config.GetConfig().Milvus.Address,
		})
	})
	return milvusInstance, milvusErr
}

// GetMilvusClient 获取已初始化的客户端
func GetMilvusClient() client.Client {
	return milvusInstance
}
