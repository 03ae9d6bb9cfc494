package service

import (
	"context"
	"fmt"
	"io"
	"path"

	"kb-engine/internal/dao"
	"kb-engine/internal/model"
	"kb-engine/internal/storage"
	"kb-engine/internal/utils"
)

// FileService 源文件上传下载管理
type FileService struct {
	fileDao dao.FileDao
	driver  storage.Driver
}

// NewFileService 创建文件服务
func NewFileService(fileDao dao.FileDao, driver storage.Driver) *FileService {
	return &FileService{fileDao: fileDao, driver: driver}
}

// Upload 上传文件到对象存储并登记元信息
func (s *FileService) Upload(ctx context.Context, name string, size int64, contentType string, reader io.Reader) (*model.File, error) {
	id := utils.GenerateUUID()
	// 存储key带扩展名，便于对象存储侧排查
	key := path.Join("files", id+path.Ext(name))

	if err := s.driver.PutObject(ctx, key, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("上传文件失败: %w", err)
	}

	file := &model.File{
		ID:         id,
		Name:       name,
		MIMEType:   contentType,
		Size:       size,
		StorageKey: key,
	}
	if err := s.fileDao.CreateFile(file); err != nil {
		// 元信息写入失败时回收已上传对象
		_ = s.driver.DeleteObject(ctx, key)
		return nil, fmt.Errorf("保存文件记录失败: %w", err)
	}
	return file, nil
}

// Download 下载文件内容
func (s *FileService) Download(ctx context.Context, fileID string) (*model.File, []byte, error) {
	file, err := s.fileDao.GetFileMetaByFileID(fileID)
	if err != nil {
		return nil, nil, err
	}
	if file == nil {
		return nil, nil, ErrFileNotFound
	}
	data, err := s.driver.GetObject(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("下载文件失败: %w", err)
	}
	return file, data, nil
}

// GetURL 获取文件访问地址
func (s *FileService) GetURL(ctx context.Context, fileID string) (string, error) {
	file, err := s.fileDao.GetFileMetaByFileID(fileID)
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", ErrFileNotFound
	}
	return s.driver.GetURL(ctx, file.StorageKey)
}

// Delete 删除文件记录与存储对象
func (s *FileService) Delete(ctx context.Context, fileID string) error {
	file, err := s.fileDao.GetFileMetaByFileID(fileID)
	if err != nil {
		return err
	}
	if file == nil {
		return ErrFileNotFound
	}
	if err := s.driver.DeleteObject(ctx, file.StorageKey); err != nil {
		return fmt.Errorf("删除存储对象失败: %w", err)
	}
	return s.fileDao.DeleteFile(fileID)
}

// PageList 分页获取文件列表
func (s *FileService) PageList(ctx context.Context, page, size int) ([]model.File, int64, error) {
	total, err := s.fileDao.CountFiles()
	if err != nil {
		return nil, 0, err
	}
	files, err := s.fileDao.ListFiles(page, size)
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}
