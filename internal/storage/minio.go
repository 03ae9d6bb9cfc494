package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"kb-engine/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioDriver Minio对象存储
type minioDriver struct {
	client *minio.Client
	bucket string
}

// NewMinioDriver 创建Minio存储驱动
func NewMinioDriver(cfg config.MinioConfig) (Driver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接到Minio: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 确保bucket存在
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("检查bucket失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("创建bucket失败: %w", err)
		}
	}

	return &minioDriver{client: client, bucket: cfg.Bucket}, nil
}

func (d *minioDriver) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := d.client.PutObject(ctx, d.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传对象失败: %w", err)
	}
	return nil
}

func (d *minioDriver) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象失败: %w", err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, fmt.Errorf("读取对象失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (d *minioDriver) DeleteObject(ctx context.Context, key string) error {
	return d.client.RemoveObject(ctx, d.bucket, key, minio.RemoveObjectOptions{})
}

func (d *minioDriver) GetURL(ctx context.Context, key string) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, d.bucket, key, 24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return u.String(), nil
}
