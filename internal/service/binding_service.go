package service

import (
	"context"
	"errors"
	"fmt"

	"kb-engine/internal/component/embedding"
	"kb-engine/internal/dao"
	"kb-engine/internal/model"

	"gorm.io/gorm"
)

// ErrBindingInvalid 知识库embedding绑定不可用（配置错误，不可通过重试恢复）
var ErrBindingInvalid = errors.New("知识库embedding绑定不可用")

// Binding 知识库到embedding模型的绑定解析结果
type Binding struct {
	KB        *model.KnowledgeBase
	Model     *model.Model
	Embedder  embedding.EmbeddingService
	Dimension int
}

// BindingResolver 解析知识库绑定的embedding模型并实例化客户端
type BindingResolver interface {
	Resolve(ctx context.Context, kbID string) (*Binding, error)
}

type bindingResolver struct {
	kbDao    dao.KnowledgeBaseDao
	modelDao dao.ModelDao
}

// NewBindingResolver 创建绑定解析器
func NewBindingResolver(kbDao dao.KnowledgeBaseDao, modelDao dao.ModelDao) BindingResolver {
	return &bindingResolver{kbDao: kbDao, modelDao: modelDao}
}

func (r *bindingResolver) Resolve(ctx context.Context, kbID string) (*Binding, error) {
	kb, err := r.kbDao.GetKBByID(kbID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 知识库%s不存在", ErrBindingInvalid, kbID)
		}
		return nil, fmt.Errorf("获取知识库失败: %w", err)
	}
	if kb.EmbedModelID == "" {
		return nil, fmt.Errorf("%w: 知识库%s未绑定embedding模型", ErrBindingInvalid, kbID)
	}

	m, err := r.modelDao.GetByID(ctx, kb.EmbedModelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: embedding模型%s不存在", ErrBindingInvalid, kb.EmbedModelID)
		}
		return nil, fmt.Errorf("获取模型配置失败: %w", err)
	}
	if m.Type != "embedding" {
		return nil, fmt.Errorf("%w: 模型%s不是embedding类型", ErrBindingInvalid, m.ID)
	}
	if m.Dimension <= 0 {
		return nil, fmt.Errorf("%w: 模型%s未配置向量维度", ErrBindingInvalid, m.ID)
	}

	embedder, err := embedding.NewEmbeddingService(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindingInvalid, err)
	}

	return &Binding{
		KB:        kb,
		Model:     m,
		Embedder:  embedder,
		Dimension: m.Dimension,
	}, nil
}
