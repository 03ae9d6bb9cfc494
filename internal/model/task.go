package model

import "time"

// 解析任务状态
const (
	TaskStatusQueued      = "queued"
	TaskStatusDownloading = "downloading"
	TaskStatusChunking    = "chunking"
	TaskStatusEmbedding   = "embedding"
	TaskStatusIndexing    = "indexing"
	TaskStatusDone        = "done"
	TaskStatusFailed      = "failed"
	TaskStatusCancelled   = "cancelled"
)

// IsTerminalStatus 任务是否已进入终态
func IsTerminalStatus(status string) bool {
	switch status {
	case TaskStatusDone, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// ParseTask 文档解析任务
// 每个主要步骤之后持久化一次状态，供外部轮询进度
type ParseTask struct {
	ID              string    `gorm:"primaryKey;type:char(36)"` // UUID
	DocumentID      string    `gorm:"index"`                    // 关联文档ID
	KnowledgeBaseID string    `gorm:"index"`                    // 所属知识库ID
	Status          string    `gorm:"index;not null"`           // 任务状态
	Progress        float64   // 进度 [0,1]
	Attempts        int       // 已尝试次数
	ErrorMsg        string    `gorm:"type:text"` // 最后一次错误信息
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TaskStatusView 任务状态读模型
type TaskStatusView struct {
	TaskID     string  `json:"task_id"`
	DocumentID string  `json:"document_id"`
	KBID       string  `json:"kb_id"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Attempts   int     `json:"attempts"`
	Error      string  `json:"error,omitempty"`
}

// StatusView 转换为读模型
func (t *ParseTask) StatusView() TaskStatusView {
	return TaskStatusView{
		TaskID:     t.ID,
		DocumentID: t.DocumentID,
		KBID:       t.KnowledgeBaseID,
		Status:     t.Status,
		Progress:   t.Progress,
		Attempts:   t.Attempts,
		Error:      t.ErrorMsg,
	}
}
