package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"kb-engine/config"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// ossDriver 阿里云OSS存储
type ossDriver struct {
	bucket *oss.Bucket
}

// NewOSSDriver 创建OSS存储驱动
func NewOSSDriver(cfg config.OSSConfig) (Driver, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("无法连接到OSS: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("获取bucket失败: %w", err)
	}
	return &ossDriver{bucket: bucket}, nil
}

func (d *ossDriver) PutObject(_ context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	if err := d.bucket.PutObject(key, reader, oss.ContentType(contentType)); err != nil {
		return fmt.Errorf("上传对象失败: %w", err)
	}
	return nil
}

func (d *ossDriver) GetObject(_ context.Context, key string) ([]byte, error) {
	body, err := d.bucket.GetObject(key)
	if err != nil {
		return nil, fmt.Errorf("获取对象失败: %w", err)
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, fmt.Errorf("读取对象失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *ossDriver) DeleteObject(_ context.Context, key string) error {
	return d.bucket.DeleteObject(key)
}

func (d *ossDriver) GetURL(_ context.Context, key string) (string, error) {
	u, err := d.bucket.SignURL(key, oss.HTTPGet, 24*3600)
	if err != nil {
		return "", fmt.Errorf("生成签名URL失败: %w", err)
	}
	return u, nil
}
