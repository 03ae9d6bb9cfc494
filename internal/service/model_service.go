package service

import (
	"context"
	"errors"
	"fmt"

	"kb-engine/internal/dao"
	"kb-engine/internal/model"
	"kb-engine/internal/utils"

	"gorm.io/gorm"
)

// ErrModelNotFound 模型配置不存在
var ErrModelNotFound = errors.New("模型配置不存在")

// ModelService 模型配置管理（embedding/rerank）
type ModelService struct {
	modelDao dao.ModelDao
}

// NewModelService 创建模型配置服务
func NewModelService(modelDao dao.ModelDao) *ModelService {
	return &ModelService{modelDao: modelDao}
}

// Create 创建模型配置
func (s *ModelService) Create(ctx context.Context, req *model.CreateModelRequest) (*model.Model, error) {
	if req.Type == "embedding" && req.Dimension <= 0 {
		return nil, fmt.Errorf("embedding模型必须指定向量维度")
	}

	m := &model.Model{
		ID:        utils.GenerateUUID(),
		Type:      req.Type,
		Name:      req.Name,
		Server:    req.Server,
		BaseURL:   req.BaseURL,
		ModelName: req.ModelName,
		APIKey:    req.APIKey,
		Dimension: req.Dimension,
	}
	if err := s.modelDao.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("创建模型配置失败: %w", err)
	}
	return m, nil
}

// GetByID 获取模型配置
func (s *ModelService) GetByID(ctx context.Context, id string) (*model.Model, error) {
	m, err := s.modelDao.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return m, nil
}

// Delete 删除模型配置
func (s *ModelService) Delete(ctx context.Context, id string) error {
	return s.modelDao.Delete(ctx, id)
}

// PageList 分页获取模型配置，modelType为空时不过滤
func (s *ModelService) PageList(ctx context.Context, modelType string, page, size int) ([]*model.Model, int64, error) {
	return s.modelDao.Page(ctx, modelType, page, size)
}
