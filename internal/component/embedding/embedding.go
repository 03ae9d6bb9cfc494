package embedding

import (
	"context"
	"fmt"
	"time"

	"kb-engine/internal/model"
)

type EmbeddingOption func(*EmbeddingOptions)

type EmbeddingOptions struct {
	Timeout *time.Duration
}

func WithTimeout(timeout time.Duration) EmbeddingOption {
	return func(o *EmbeddingOptions) {
		o.Timeout = &timeout
	}
}

// EmbeddingService 定义向量嵌入服务的通用接口
type EmbeddingService interface {
	New(ctx context.Context, cfg *model.Model, opts ...EmbeddingOption) (EmbeddingService, error)
	// EmbedStrings 将文本转换为向量表示
	EmbedStrings(ctx context.Context, texts []string) ([][]float64, error)
	// GetDimension 返回嵌入向量的维度
	GetDimension() int
}

var embeddingMap = make(map[string]EmbeddingService)

func register(name string, embeddingService EmbeddingService) {
	embeddingMap[name] = embeddingService
}

// NewEmbeddingService 根据模型配置创建embedding服务实例
func NewEmbeddingService(ctx context.Context, cfg *model.Model, opts ...EmbeddingOption) (EmbeddingService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedding config is nil")
	}

	if cfg.Server == "" {
		return nil, fmt.Errorf("embedding config server is empty")
	}

	// 获取实例
	if embedder, ok := embeddingMap[cfg.Server]; ok {
		return embedder.New(ctx, cfg, opts...)
	}
	return nil, fmt.Errorf("不支持的嵌入服务提供者: %s", cfg.Server)
}
