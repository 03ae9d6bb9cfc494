package model

import "time"

// Model 模型配置（embedding绑定）
type Model struct {
	// 基础信息
	ID        string `gorm:"primaryKey;type:char(36)"`
	Type      string `gorm:"not null"` // embedding/rerank
	Name      string `gorm:"not null"` // 显示名称
	Server    string `gorm:"not null"` // openai/ollama
	BaseURL   string `gorm:"not null"` // API基础地址
	ModelName string `gorm:"not null"` // 模型标识符，例如 text-embedding-v3
	APIKey    string // 访问密钥

	// Embedding模型字段
	Dimension int // 向量维度(embedding必填)，首个集合创建后不可变更

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// CreateModelRequest 创建模型配置请求
type CreateModelRequest struct {
	Type      string `json:"type" binding:"required,oneof=embedding rerank"`
	Name      string `json:"name" binding:"required"`
	Server    string `json:"server" binding:"required"`
	BaseURL   string `json:"base_url" binding:"required,url"`
	ModelName string `json:"model" binding:"required"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}
