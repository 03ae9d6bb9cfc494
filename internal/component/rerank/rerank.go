package rerank

import (
	"context"
)

// Reranker 重排序服务接口
// 输入 (query, 候选文本) 对，输出与documents等长的相关性分数
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
	Name() string
}
