package storage

import (
	"context"
	"fmt"
	"io"

	"kb-engine/config"
)

// Driver 对象存储驱动接口
type Driver interface {
	// PutObject 上传对象
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// GetObject 下载对象完整内容
	GetObject(ctx context.Context, key string) ([]byte, error)
	// DeleteObject 删除对象
	DeleteObject(ctx context.Context, key string) error
	// GetURL 获取对象的访问URL
	GetURL(ctx context.Context, key string) (string, error)
}

// NewDriver 根据配置创建存储驱动
func NewDriver(cfg config.StorageConfig) (Driver, error) {
	switch cfg.Type {
	case "local":
		return NewLocalDriver(cfg.Local)
	case "minio":
		return NewMinioDriver(cfg.Minio)
	case "oss":
		return NewOSSDriver(cfg.OSS)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Type)
	}
}
