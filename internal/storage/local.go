package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"kb-engine/config"
)

// localDriver 本地磁盘存储
type localDriver struct {
	baseDir string
}

// NewLocalDriver 创建本地存储驱动
func NewLocalDriver(cfg config.LocalConfig) (Driver, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("本地存储根目录未配置")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &localDriver{baseDir: cfg.BaseDir}, nil
}

func (d *localDriver) path(key string) string {
	return filepath.Join(d.baseDir, filepath.Clean("/"+key))
}

func (d *localDriver) PutObject(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(f, reader)
	return err
}

func (d *localDriver) GetObject(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(d.path(key))
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return data, nil
}

func (d *localDriver) DeleteObject(_ context.Context, key string) error {
	err := os.Remove(d.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *localDriver) GetURL(_ context.Context, key string) (string, error) {
	return "file://" + d.path(key), nil
}
