package model

import "time"

// File 存储的源文件
type File struct {
	ID         string    `gorm:"primaryKey;type:char(36)"` // UUID
	Name       string    `gorm:"not null"`                 // 文件名
	MIMEType   string    // 文件类型
	Size       int64     // 文件大小（字节）
	StorageKey string    `gorm:"not null"` // 对象存储key
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}
