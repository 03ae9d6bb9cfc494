package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kb-engine/internal/dao"
	"kb-engine/internal/model"
	"kb-engine/internal/queue"
	"kb-engine/internal/utils"
	"kb-engine/internal/vector"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrKBNotFound 知识库不存在
	ErrKBNotFound = errors.New("知识库不存在")
	// ErrDocNotFound 文档不存在
	ErrDocNotFound = errors.New("文档不存在")
	// ErrFileNotFound 文件不存在
	ErrFileNotFound = errors.New("文件不存在")
	// ErrDocBusy 文档上已有进行中的解析任务
	ErrDocBusy = errors.New("文档正在解析中")
	// ErrDuplicateDocument 同一文件重复加入知识库
	ErrDuplicateDocument = errors.New("文件已存在于该知识库")
)

// VectorAdmin 知识库删除时清理向量数据
type VectorAdmin interface {
	DeleteByDocumentID(ctx context.Context, collection string, docID string) error
	DropCollection(ctx context.Context, name string) error
}

// KBService 知识库与文档管理
type KBService struct {
	kbDao    dao.KnowledgeBaseDao
	fileDao  dao.FileDao
	taskDao  dao.ParseTaskDao
	modelDao dao.ModelDao
	queue    queue.TaskQueue
	vectors  VectorAdmin
	prefix   string
	logger   *zap.Logger
}

// NewKBService 创建知识库服务
func NewKBService(
	kbDao dao.KnowledgeBaseDao,
	fileDao dao.FileDao,
	taskDao dao.ParseTaskDao,
	modelDao dao.ModelDao,
	q queue.TaskQueue,
	vectors VectorAdmin,
	collectionPrefix string,
	logger *zap.Logger,
) *KBService {
	return &KBService{
		kbDao:    kbDao,
		fileDao:  fileDao,
		taskDao:  taskDao,
		modelDao: modelDao,
		queue:    q,
		vectors:  vectors,
		prefix:   collectionPrefix,
		logger:   logger,
	}
}

// CreateKB 创建知识库，集合名由知识库ID派生（集合本身在首次解析时惰性创建）
func (s *KBService) CreateKB(ctx context.Context, req *model.CreateKBRequest) (*model.KnowledgeBase, error) {
	m, err := s.modelDao.GetByID(ctx, req.EmbedModelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: embedding模型%s不存在", ErrBindingInvalid, req.EmbedModelID)
		}
		return nil, fmt.Errorf("获取模型配置失败: %w", err)
	}
	if m.Type != "embedding" {
		return nil, fmt.Errorf("%w: 模型%s不是embedding类型", ErrBindingInvalid, m.ID)
	}

	kb := &model.KnowledgeBase{
		ID:           utils.GenerateUUID(),
		Name:         req.Name,
		Description:  req.Description,
		EmbedModelID: req.EmbedModelID,
	}
	kb.MilvusCollection = vector.CollectionName(s.prefix, kb.ID)

	if err := s.kbDao.CreateKB(kb); err != nil {
		return nil, fmt.Errorf("创建知识库失败: %w", err)
	}
	return kb, nil
}

// GetKBDetail 获取知识库详情
func (s *KBService) GetKBDetail(ctx context.Context, kbID string) (*model.KnowledgeBase, error) {
	kb, err := s.kbDao.GetKBByID(kbID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKBNotFound
		}
		return nil, err
	}
	return kb, nil
}

// PageList 分页获取知识库列表
func (s *KBService) PageList(ctx context.Context, page, size int) ([]model.KnowledgeBase, int64, error) {
	total, err := s.kbDao.CountKBs()
	if err != nil {
		return nil, 0, err
	}
	kbs, err := s.kbDao.ListKBs(page, size)
	if err != nil {
		return nil, 0, err
	}
	return kbs, total, nil
}

// DeleteKB 删除知识库：取消全部任务、删除文档记录、删除向量集合
func (s *KBService) DeleteKB(ctx context.Context, kbID string) error {
	kb, err := s.GetKBDetail(ctx, kbID)
	if err != nil {
		return err
	}

	docs, err := s.kbDao.GetAllDocsByKBID(kbID)
	if err != nil {
		return err
	}
	docIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		if err := s.taskDao.CancelByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("取消文档任务失败: %w", err)
		}
		docIDs = append(docIDs, doc.ID)
	}
	if err := s.kbDao.DeleteDocs(docIDs); err != nil {
		return err
	}

	if err := s.vectors.DropCollection(ctx, kb.MilvusCollection); err != nil {
		return err
	}
	if err := s.kbDao.DeleteKB(kbID); err != nil {
		return fmt.Errorf("删除知识库失败: %w", err)
	}
	s.logger.Info("知识库已删除", zap.String("kb_id", kbID), zap.Int("docs", len(docIDs)))
	return nil
}

// AddDocument 将文件加入知识库并投递解析任务
func (s *KBService) AddDocument(ctx context.Context, req *model.AddDocumentRequest) (*model.Document, *model.ParseTask, error) {
	kb, err := s.GetKBDetail(ctx, req.KBID)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.fileDao.GetFileMetaByFileID(req.FileID)
	if err != nil {
		return nil, nil, err
	}
	if file == nil {
		return nil, nil, ErrFileNotFound
	}

	// 同一文件在知识库内只建一个文档，重复索引走重新解析
	existing, err := s.kbDao.GetAllDocsByKBID(kb.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, doc := range existing {
		if doc.FileID == file.ID {
			return nil, nil, ErrDuplicateDocument
		}
	}

	parserCfg := ""
	if req.ParserConfig != nil {
		parserCfg, err = sonic.MarshalString(req.ParserConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("序列化分块配置失败: %w", err)
		}
	}

	doc := &model.Document{
		ID:              utils.GenerateUUID(),
		KnowledgeBaseID: kb.ID,
		FileID:          file.ID,
		Title:           file.Name,
		DocType:         file.MIMEType,
		ParserConfig:    parserCfg,
	}
	if err := s.kbDao.CreateDocument(doc); err != nil {
		return nil, nil, fmt.Errorf("创建文档失败: %w", err)
	}

	task, err := s.enqueueParse(ctx, doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, task, nil
}

// ReparseDocument 对已有文档重新解析，可更新分块配置
func (s *KBService) ReparseDocument(ctx context.Context, req *model.ReparseRequest) (*model.ParseTask, error) {
	doc, err := s.kbDao.GetDocumentByID(req.DocID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocNotFound
		}
		return nil, err
	}

	busy, err := s.taskDao.HasActiveTask(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrDocBusy
	}

	if req.ParserConfig != nil {
		cfg, err := sonic.MarshalString(req.ParserConfig)
		if err != nil {
			return nil, fmt.Errorf("序列化分块配置失败: %w", err)
		}
		doc.ParserConfig = cfg
		if err := s.kbDao.UpdateDocument(doc); err != nil {
			return nil, err
		}
	}

	return s.enqueueParse(ctx, doc)
}

// DeleteDocs 批量删除文档：先取消任务再清理向量，最后删记录
func (s *KBService) DeleteDocs(ctx context.Context, req *model.BatchDeleteDocsReq) error {
	for _, docID := range req.DocIDs {
		doc, err := s.kbDao.GetDocumentByID(docID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}

		if err := s.taskDao.CancelByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("取消文档任务失败: %w", err)
		}

		kb, err := s.kbDao.GetKBByID(doc.KnowledgeBaseID)
		if err == nil {
			if err := s.vectors.DeleteByDocumentID(ctx, kb.MilvusCollection, doc.ID); err != nil {
				return fmt.Errorf("清理文档向量失败: %w", err)
			}
		}
	}
	return s.kbDao.DeleteDocs(req.DocIDs)
}

// ListDocs 分页获取知识库文档
func (s *KBService) ListDocs(ctx context.Context, kbID string, page, size int) ([]model.Document, int64, error) {
	if _, err := s.GetKBDetail(ctx, kbID); err != nil {
		return nil, 0, err
	}
	total, err := s.kbDao.CountDocs(kbID)
	if err != nil {
		return nil, 0, err
	}
	docs, err := s.kbDao.ListDocs(kbID, page, size)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// enqueueParse 创建任务记录并投递队列，投递失败时回滚任务为failed
func (s *KBService) enqueueParse(ctx context.Context, doc *model.Document) (*model.ParseTask, error) {
	task := &model.ParseTask{
		ID:              utils.GenerateUUID(),
		DocumentID:      doc.ID,
		KnowledgeBaseID: doc.KnowledgeBaseID,
		Status:          model.TaskStatusQueued,
	}
	if err := s.taskDao.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("创建解析任务失败: %w", err)
	}

	msg := &queue.Message{
		TaskID:          task.ID,
		DocumentID:      doc.ID,
		KnowledgeBaseID: doc.KnowledgeBaseID,
		EnqueuedAt:      time.Now(),
	}
	if err := s.queue.Push(ctx, msg); err != nil {
		_ = s.taskDao.UpdateStatus(ctx, task.ID, model.TaskStatusFailed, 0, "任务投递失败: "+err.Error())
		return nil, fmt.Errorf("任务入队失败: %w", err)
	}

	s.logger.Info("解析任务已入队",
		zap.String("task_id", task.ID),
		zap.String("document_id", doc.ID),
		zap.String("kb_id", doc.KnowledgeBaseID))
	return task, nil
}
