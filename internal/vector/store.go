package vector

import (
	"context"

	"kb-engine/internal/model"
)

// SearchHit 混合检索命中结果
type SearchHit struct {
	Chunk model.Chunk
	Score float64 // 召回阶段融合分数
}

// Store 向量存储的窄接口，隔离具体存储产品
type Store interface {
	// InsertChunks 按序插入文本块（稠密+稀疏向量）
	InsertChunks(ctx context.Context, collection string, chunks []model.Chunk) error
	// DeleteByDocumentID 删除文档的全部文本块
	DeleteByDocumentID(ctx context.Context, collection string, docID string) error
	// HybridSearch 稠密+词法混合检索，返回按融合分数降序的候选集，数量不超过limit
	HybridSearch(ctx context.Context, collection string, kbID string, dense []float32, queryText string, limit int) ([]SearchHit, error)
	// CollectionDim 读取集合向量维度（查询时校验绑定一致性）
	CollectionDim(ctx context.Context, name string) (int, error)
	// Flush 持久化集合写入
	Flush(ctx context.Context, collection string) error
}
