package dao

import (
	"context"
	"fmt"

	"kb-engine/internal/model"

	"gorm.io/gorm"
)

// ParseTaskDao 解析任务记录操作接口
type ParseTaskDao interface {
	Create(ctx context.Context, task *model.ParseTask) error
	GetByID(ctx context.Context, id string) (*model.ParseTask, error)
	Update(ctx context.Context, task *model.ParseTask) error
	// UpdateStatus 更新状态与进度；errMsg为空表示清除错误信息
	UpdateStatus(ctx context.Context, id string, status string, progress float64, errMsg string) error
	// CancelByDocument 取消文档上所有未终态的任务
	CancelByDocument(ctx context.Context, docID string) error
	// HasActiveTask 文档上是否存在未终态任务（防止重复索引同一文件）
	HasActiveTask(ctx context.Context, docID string) (bool, error)
	ListByKB(ctx context.Context, kbID string, page, size int) ([]model.ParseTask, int64, error)
	ListByDocument(ctx context.Context, docID string) ([]model.ParseTask, error)
}

type parseTaskDao struct {
	db *gorm.DB
}

func NewParseTaskDao(db *gorm.DB) ParseTaskDao {
	return &parseTaskDao{db: db}
}

func (d *parseTaskDao) Create(ctx context.Context, task *model.ParseTask) error {
	return d.db.WithContext(ctx).Create(task).Error
}

func (d *parseTaskDao) GetByID(ctx context.Context, id string) (*model.ParseTask, error) {
	var task model.ParseTask
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (d *parseTaskDao) Update(ctx context.Context, task *model.ParseTask) error {
	return d.db.WithContext(ctx).Save(task).Error
}

func (d *parseTaskDao) UpdateStatus(ctx context.Context, id string, status string, progress float64, errMsg string) error {
	updates := map[string]interface{}{
		"status":    status,
		"progress":  progress,
		"error_msg": errMsg,
	}
	result := d.db.WithContext(ctx).Model(&model.ParseTask{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新任务状态失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *parseTaskDao) CancelByDocument(ctx context.Context, docID string) error {
	return d.db.WithContext(ctx).Model(&model.ParseTask{}).
		Where("document_id = ? AND status NOT IN ?", docID,
			[]string{model.TaskStatusDone, model.TaskStatusFailed, model.TaskStatusCancelled}).
		Update("status", model.TaskStatusCancelled).Error
}

func (d *parseTaskDao) HasActiveTask(ctx context.Context, docID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.ParseTask{}).
		Where("document_id = ? AND status NOT IN ?", docID,
			[]string{model.TaskStatusDone, model.TaskStatusFailed, model.TaskStatusCancelled}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (d *parseTaskDao) ListByKB(ctx context.Context, kbID string, page, size int) ([]model.ParseTask, int64, error) {
	var tasks []model.ParseTask
	var total int64

	db := d.db.WithContext(ctx).Model(&model.ParseTask{}).Where("knowledge_base_id = ?", kbID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at desc").Offset((page - 1) * size).Limit(size).Find(&tasks).Error
	return tasks, total, err
}

func (d *parseTaskDao) ListByDocument(ctx context.Context, docID string) ([]model.ParseTask, error) {
	var tasks []model.ParseTask
	err := d.db.WithContext(ctx).Where("document_id = ?", docID).
		Order("created_at desc").Find(&tasks).Error
	return tasks, err
}
