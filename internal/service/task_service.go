package service

import (
	"context"
	"errors"
	"fmt"

	"kb-engine/internal/dao"
	"kb-engine/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("任务不存在")
	// ErrTaskTerminal 任务已进入终态，不可取消
	ErrTaskTerminal = errors.New("任务已结束")
)

// TaskService 解析任务状态查询与取消
type TaskService struct {
	taskDao dao.ParseTaskDao
}

// NewTaskService 创建任务服务
func NewTaskService(taskDao dao.ParseTaskDao) *TaskService {
	return &TaskService{taskDao: taskDao}
}

// GetStatus 查询任务状态
func (s *TaskService) GetStatus(ctx context.Context, taskID string) (*model.TaskStatusView, error) {
	task, err := s.taskDao.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	view := task.StatusView()
	return &view, nil
}

// Cancel 取消任务
// worker在阶段边界轮询到cancelled后停止，进行中的阶段会先跑完
func (s *TaskService) Cancel(ctx context.Context, taskID string) error {
	task, err := s.taskDao.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	if model.IsTerminalStatus(task.Status) {
		return fmt.Errorf("%w: %s", ErrTaskTerminal, task.Status)
	}
	return s.taskDao.UpdateStatus(ctx, taskID, model.TaskStatusCancelled, task.Progress, "")
}

// ListByKB 分页查询知识库下的任务
func (s *TaskService) ListByKB(ctx context.Context, kbID string, page, size int) ([]model.TaskStatusView, int64, error) {
	tasks, total, err := s.taskDao.ListByKB(ctx, kbID, page, size)
	if err != nil {
		return nil, 0, err
	}
	views := make([]model.TaskStatusView, len(tasks))
	for i := range tasks {
		views[i] = tasks[i].StatusView()
	}
	return views, total, nil
}

// ListByDocument 查询文档的全部任务（含历史）
func (s *TaskService) ListByDocument(ctx context.Context, docID string) ([]model.TaskStatusView, error) {
	tasks, err := s.taskDao.ListByDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	views := make([]model.TaskStatusView, len(tasks))
	for i := range tasks {
		views[i] = tasks[i].StatusView()
	}
	return views, nil
}
