package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrDimensionMismatch 已有集合维度与embedding绑定维度不一致
// 属于配置错误：更换embedding模型后需要显式重建集合，不可静默混用
var ErrDimensionMismatch = errors.New("集合维度与embedding模型维度不一致")

// Admin 集合管理的窄接口，由milvus store实现
type Admin interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, dim int) error
	CollectionDim(ctx context.Context, name string) (int, error)
}

// Manager 集合生命周期管理器
// Ensure对同一知识库并发调用时按知识库ID串行化，保证只创建一个集合
type Manager struct {
	admin  Admin
	prefix string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager 创建集合生命周期管理器
func NewManager(admin Admin, prefix string) *Manager {
	return &Manager{
		admin:  admin,
		prefix: prefix,
		locks:  make(map[string]*sync.Mutex),
	}
}

// kbLock 获取知识库级别的互斥锁
func (m *Manager) kbLock(kbID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[kbID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[kbID] = lock
	}
	return lock
}

// Ensure 确保知识库的集合存在且维度正确，返回集合名
// 集合不存在时按给定维度惰性创建；存在时校验维度，不一致返回ErrDimensionMismatch
func (m *Manager) Ensure(ctx context.Context, kbID string, dim int) (string, error) {
	if dim <= 0 {
		return "", fmt.Errorf("非法的向量维度: %d", dim)
	}

	lock := m.kbLock(kbID)
	lock.Lock()
	defer lock.Unlock()

	name := CollectionName(m.prefix, kbID)

	exists, err := m.admin.HasCollection(ctx, name)
	if err != nil {
		return "", fmt.Errorf("检查集合失败: %w", err)
	}

	if !exists {
		if err := m.admin.CreateCollection(ctx, name, dim); err != nil {
			return "", fmt.Errorf("创建集合失败: %w", err)
		}
		return name, nil
	}

	existingDim, err := m.admin.CollectionDim(ctx, name)
	if err != nil {
		return "", fmt.Errorf("读取集合维度失败: %w", err)
	}
	if existingDim != dim {
		return "", fmt.Errorf("%w: 集合%s维度=%d, 模型维度=%d", ErrDimensionMismatch, name, existingDim, dim)
	}
	return name, nil
}
