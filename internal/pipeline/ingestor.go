package pipeline

import (
	"context"
	"errors"
	"fmt"

	"kb-engine/internal/component/splitter"
	"kb-engine/internal/dao"
	"kb-engine/internal/model"
	"kb-engine/internal/queue"
	"kb-engine/internal/service"
	"kb-engine/internal/storage"
	"kb-engine/internal/utils"
	"kb-engine/internal/vector"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 各阶段进度锚点，embedding阶段在区间内按批次推进
const (
	progressDownloading = 0.05
	progressChunking    = 0.20
	progressEmbedStart  = 0.25
	progressEmbedEnd    = 0.90
	progressIndexing    = 0.95
)

// CollectionEnsurer 集合惰性创建入口
type CollectionEnsurer interface {
	Ensure(ctx context.Context, kbID string, dim int) (string, error)
}

// Ingestor 文档解析流水线：下载 -> 分块 -> 向量化 -> 入库
// Run的返回错误决定任务归宿：nil成功、IsFatal不重试、ErrCancelled取消、其余重试
type Ingestor interface {
	Run(ctx context.Context, msg *queue.Message) error
}

type ingestor struct {
	taskDao     dao.ParseTaskDao
	kbDao       dao.KnowledgeBaseDao
	fileDao     dao.FileDao
	resolver    service.BindingResolver
	collections CollectionEnsurer
	store       vector.Store
	storage     storage.Driver
	segmenter   splitter.Segmenter
	batchSize   int
	logger      *zap.Logger
}

// NewIngestor 创建解析流水线
func NewIngestor(
	taskDao dao.ParseTaskDao,
	kbDao dao.KnowledgeBaseDao,
	fileDao dao.FileDao,
	resolver service.BindingResolver,
	collections CollectionEnsurer,
	store vector.Store,
	driver storage.Driver,
	segmenter splitter.Segmenter,
	batchSize int,
	logger *zap.Logger,
) Ingestor {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &ingestor{
		taskDao:     taskDao,
		kbDao:       kbDao,
		fileDao:     fileDao,
		resolver:    resolver,
		collections: collections,
		store:       store,
		storage:     driver,
		segmenter:   segmenter,
		batchSize:   batchSize,
		logger:      logger,
	}
}

func (p *ingestor) Run(ctx context.Context, msg *queue.Message) error {
	log := p.logger.With(
		zap.String("task_id", msg.TaskID),
		zap.String("document_id", msg.DocumentID),
		zap.String("kb_id", msg.KnowledgeBaseID),
	)

	task, err := p.taskDao.GetByID(ctx, msg.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fatal(fmt.Errorf("任务记录不存在: %s", msg.TaskID))
		}
		return fmt.Errorf("读取任务失败: %w", err)
	}
	switch task.Status {
	case model.TaskStatusCancelled:
		return ErrCancelled
	case model.TaskStatusDone:
		// 重复投递的已完成任务，直接确认
		return nil
	}

	// 解析embedding绑定，配置错误不重试
	binding, err := p.resolver.Resolve(ctx, msg.KnowledgeBaseID)
	if err != nil {
		if errors.Is(err, service.ErrBindingInvalid) {
			return Fatal(err)
		}
		return err
	}

	// 确保集合存在且维度匹配
	collection, err := p.collections.Ensure(ctx, msg.KnowledgeBaseID, binding.Dimension)
	if err != nil {
		if errors.Is(err, vector.ErrDimensionMismatch) {
			return Fatal(err)
		}
		return err
	}

	// 下载阶段
	if err := p.setStatus(ctx, msg.TaskID, model.TaskStatusDownloading, progressDownloading); err != nil {
		return err
	}

	// 先清空该文档的旧向量，保证重复解析幂等
	if err := p.store.DeleteByDocumentID(ctx, collection, msg.DocumentID); err != nil {
		return fmt.Errorf("清理历史向量失败: %w", err)
	}

	doc, err := p.kbDao.GetDocumentByID(msg.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fatal(fmt.Errorf("文档%s不存在", msg.DocumentID))
		}
		return fmt.Errorf("读取文档失败: %w", err)
	}
	file, err := p.fileDao.GetFileMetaByFileID(doc.FileID)
	if err != nil {
		return fmt.Errorf("读取文件元信息失败: %w", err)
	}
	if file == nil {
		return Fatal(fmt.Errorf("文档%s关联的文件%s不存在", doc.ID, doc.FileID))
	}

	raw, err := p.storage.GetObject(ctx, file.StorageKey)
	if err != nil {
		return fmt.Errorf("下载文件失败: %w", err)
	}

	// 分块阶段
	if err := p.checkCancelled(ctx, msg.TaskID); err != nil {
		return err
	}
	if err := p.setStatus(ctx, msg.TaskID, model.TaskStatusChunking, progressChunking); err != nil {
		return err
	}

	var parserCfg model.ParserConfig
	if doc.ParserConfig != "" {
		if err := sonic.UnmarshalString(doc.ParserConfig, &parserCfg); err != nil {
			return Fatal(fmt.Errorf("解析分块配置失败: %w", err))
		}
	}

	segments, err := p.segmenter.Split(ctx, raw, file.MIMEType, parserCfg)
	if err != nil {
		// 分块失败是数据问题，重试不会改变结果
		return Fatal(err)
	}

	// 向量化+入库，按批推进
	if err := p.checkCancelled(ctx, msg.TaskID); err != nil {
		return err
	}
	if err := p.setStatus(ctx, msg.TaskID, model.TaskStatusEmbedding, progressEmbedStart); err != nil {
		return err
	}

	total := len(segments)
	for start := 0; start < total; start += p.batchSize {
		if err := p.checkCancelled(ctx, msg.TaskID); err != nil {
			return err
		}

		end := start + p.batchSize
		if end > total {
			end = total
		}
		batch := segments[start:end]

		texts := make([]string, len(batch))
		for i, seg := range batch {
			texts[i] = seg.Content
		}

		vectors64, err := binding.Embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return fmt.Errorf("向量化失败: %w", err)
		}
		if len(vectors64) != len(batch) {
			return Fatal(fmt.Errorf("向量化结果数量不符: 期望%d实际%d", len(batch), len(vectors64)))
		}

		chunks := make([]model.Chunk, 0, len(batch))
		for i, seg := range batch {
			if len(vectors64[i]) != binding.Dimension {
				return Fatal(fmt.Errorf("向量维度不符: 期望%d实际%d", binding.Dimension, len(vectors64[i])))
			}
			meta, err := sonic.MarshalString(seg.Metadata)
			if err != nil {
				return Fatal(fmt.Errorf("序列化元信息失败: %w", err))
			}
			chunks = append(chunks, model.Chunk{
				// 确定性chunk ID：文档ID+序号，重复解析覆盖同一批主键
				ID:           fmt.Sprintf("%s_%d", doc.ID, seg.Index),
				Content:      seg.Content,
				KBID:         msg.KnowledgeBaseID,
				DocumentID:   doc.ID,
				DocumentName: doc.Title,
				Index:        seg.Index,
				Metadata:     meta,
				Embeddings:   utils.ConvertFloat64ToFloat32Embedding(vectors64[i]),
			})
		}

		if err := p.store.InsertChunks(ctx, collection, chunks); err != nil {
			return fmt.Errorf("写入向量失败: %w", err)
		}

		progress := progressEmbedStart + (progressEmbedEnd-progressEmbedStart)*float64(end)/float64(total)
		if err := p.setStatus(ctx, msg.TaskID, model.TaskStatusEmbedding, progress); err != nil {
			return err
		}
	}

	// 索引落盘
	if err := p.setStatus(ctx, msg.TaskID, model.TaskStatusIndexing, progressIndexing); err != nil {
		return err
	}
	if err := p.store.Flush(ctx, collection); err != nil {
		return fmt.Errorf("持久化集合失败: %w", err)
	}

	doc.ChunkCount = total
	if err := p.kbDao.UpdateDocument(doc); err != nil {
		return fmt.Errorf("更新文档块数量失败: %w", err)
	}

	log.Info("文档解析完成", zap.Int("chunks", total))
	return nil
}

// setStatus 推进任务状态，任务记录丢失或已取消时终止流水线
func (p *ingestor) setStatus(ctx context.Context, taskID, status string, progress float64) error {
	if err := p.taskDao.UpdateStatus(ctx, taskID, status, progress, ""); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCancelled
		}
		return fmt.Errorf("更新任务状态失败: %w", err)
	}
	return nil
}

// checkCancelled 阶段边界处重新加载任务状态，响应外部取消
func (p *ingestor) checkCancelled(ctx context.Context, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	task, err := p.taskDao.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCancelled
		}
		return fmt.Errorf("读取任务状态失败: %w", err)
	}
	if task.Status == model.TaskStatusCancelled {
		return ErrCancelled
	}
	return nil
}
