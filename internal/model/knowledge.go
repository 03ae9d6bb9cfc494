package model

import (
	"time"
)

// KnowledgeBase 知识库
type KnowledgeBase struct {
	ID               string    `gorm:"primaryKey;type:char(36)"` // UUID
	Name             string    `gorm:"not null"`                 // 知识库名称
	Description      string    // 知识库描述
	EmbedModelID     string    `gorm:"index"`    // 关联的embedding模型id
	MilvusCollection string    `gorm:"not null"` // 对应的milvus collection名称（由知识库ID派生）
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// Document 知识库文档
type Document struct {
	ID              string    `gorm:"primaryKey;type:char(36)"` // UUID
	KnowledgeBaseID string    `gorm:"index"`                    // 所属知识库ID
	FileID          string    `gorm:"index"`                    // 关联的文件ID
	Title           string    // 文档标题
	DocType         string    // 文档MIME类型(pdf/txt/md)
	ParserConfig    string    `gorm:"type:text"` // 分块配置，JSON（解析开始后不可修改）
	ChunkCount      int       // 最近一次解析产生的块数量
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// ParserConfig 文档分块配置
type ParserConfig struct {
	ChunkSize   int `json:"chunk_size"`
	OverlapSize int `json:"overlap_size"`
}

// Chunk 存储到milvus中的文本块
type Chunk struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`       // chunk内容
	KBID         string    `json:"kb_id"`         // 知识库ID（知识库级别的检索）
	DocumentID   string    `json:"document_id"`   // 文档ID
	DocumentName string    `json:"document_name"` // 文档名称
	Index        int       `json:"index"`         // 第几个chunk
	Metadata     string    `json:"metadata"`      // 附加元信息（页码、章节等），JSON
	Embeddings   []float32 `json:"embeddings"`    // chunk向量
	Score        float32   `json:"score"`         // 返回分数信息
}

// CreateKBRequest 创建知识库请求
type CreateKBRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	EmbedModelID string `json:"embed_model_id" binding:"required"`
}

// AddDocumentRequest 添加文档到知识库
type AddDocumentRequest struct {
	FileID       string        `json:"file_id" binding:"required"`
	KBID         string        `json:"kb_id" binding:"required"`
	ParserConfig *ParserConfig `json:"parser_config"`
}

// ReparseRequest 重新解析文档
type ReparseRequest struct {
	DocID        string        `json:"doc_id" binding:"required"`
	ParserConfig *ParserConfig `json:"parser_config"`
}

// BatchDeleteDocsReq 批量删除文档
type BatchDeleteDocsReq struct {
	KBID   string   `json:"kb_id"`
	DocIDs []string `json:"doc_ids" binding:"required"`
}

// RetrieveRequest 检索请求
type RetrieveRequest struct {
	Query       string   `json:"query" binding:"required"`
	KBIDs       []string `json:"kb_ids" binding:"required"`
	RecallLimit int      `json:"recall_limit"` // 缺省取配置值（默认1024）
	FinalLimit  int      `json:"final_limit"`  // 缺省取配置值（默认5）
}

// RetrievedChunk 检索结果中的单个文本块，带两阶段分数
type RetrievedChunk struct {
	ChunkID      string  `json:"chunk_id"`
	Content      string  `json:"content"`
	KBID         string  `json:"kb_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	RecallScore  float64 `json:"recall_score"`
	RerankScore  float64 `json:"rerank_score"`
}

// RetrieveResponse 检索响应
type RetrieveResponse struct {
	Results []RetrievedChunk `json:"results"`
	// RerankDegraded 未执行精排（未启用或服务不可用）时回退为召回排序，显式标记
	RerankDegraded bool `json:"rerank_degraded"`
}
