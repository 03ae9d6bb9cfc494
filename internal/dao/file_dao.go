package dao

import (
	"errors"

	"kb-engine/internal/model"

	"gorm.io/gorm"
)

// FileDao 定义了文件记录操作的接口
type FileDao interface {
	CreateFile(file *model.File) error
	GetFileMetaByFileID(id string) (*model.File, error)
	DeleteFile(id string) error
	ListFiles(page int, pageSize int) ([]model.File, error)
	CountFiles() (int64, error)
	UpdateFile(file *model.File) error
}

// fileDao 实现了FileDao接口
type fileDao struct {
	db *gorm.DB
}

// NewFileDao 创建并返回一个新的FileDao实例
func NewFileDao(db *gorm.DB) FileDao {
	return &fileDao{db: db}
}

// CreateFile 创建一个新的文件记录
func (fd *fileDao) CreateFile(file *model.File) error {
	return fd.db.Create(file).Error
}

// GetFileMetaByFileID 根据文件ID获取文件元信息
func (fd *fileDao) GetFileMetaByFileID(id string) (*model.File, error) {
	var file model.File
	result := fd.db.Where("id = ?", id).First(&file)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &file, nil
}

// DeleteFile 根据文件ID删除文件记录
func (fd *fileDao) DeleteFile(id string) error {
	return fd.db.Where("id = ?", id).Delete(&model.File{}).Error
}

// ListFiles 列出文件列表
func (fd *fileDao) ListFiles(page int, pageSize int) ([]model.File, error) {
	var files []model.File
	offset := (page - 1) * pageSize
	query := fd.db.Order("created_at desc").Offset(offset).Limit(pageSize)
	if err := query.Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// CountFiles 统计文件数量
func (fd *fileDao) CountFiles() (int64, error) {
	var total int64
	if err := fd.db.Model(&model.File{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// UpdateFile 更新文件信息
func (fd *fileDao) UpdateFile(file *model.File) error {
	return fd.db.Save(file).Error
}
