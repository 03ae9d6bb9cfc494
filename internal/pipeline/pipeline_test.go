package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"kb-engine/internal/component/embedding"
	"kb-engine/internal/component/splitter"
	"kb-engine/internal/dao"
	"kb-engine/internal/model"
	"kb-engine/internal/queue"
	"kb-engine/internal/service"
	"kb-engine/internal/storage"
	"kb-engine/internal/vector"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testDim = 4

type fakeTaskDao struct {
	mu       sync.Mutex
	tasks    map[string]*model.ParseTask
	statuses []string
	// cancelAfter 在记录到该状态后将任务置为cancelled，模拟外部取消
	cancelAfter string
}

func newFakeTaskDao(task *model.ParseTask) *fakeTaskDao {
	return &fakeTaskDao{tasks: map[string]*model.ParseTask{task.ID: task}}
}

func (d *fakeTaskDao) Create(_ context.Context, task *model.ParseTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[task.ID] = task
	return nil
}

func (d *fakeTaskDao) GetByID(_ context.Context, id string) (*model.ParseTask, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *task
	return &copied, nil
}

func (d *fakeTaskDao) Update(_ context.Context, task *model.ParseTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[task.ID] = task
	return nil
}

func (d *fakeTaskDao) UpdateStatus(_ context.Context, id, status string, progress float64, errMsg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.tasks[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	task.Status = status
	task.Progress = progress
	task.ErrorMsg = errMsg
	d.statuses = append(d.statuses, status)
	if d.cancelAfter != "" && status == d.cancelAfter {
		task.Status = model.TaskStatusCancelled
	}
	return nil
}

func (d *fakeTaskDao) CancelByDocument(context.Context, string) error { return nil }
func (d *fakeTaskDao) HasActiveTask(context.Context, string) (bool, error) {
	return false, nil
}
func (d *fakeTaskDao) ListByKB(context.Context, string, int, int) ([]model.ParseTask, int64, error) {
	return nil, 0, nil
}
func (d *fakeTaskDao) ListByDocument(context.Context, string) ([]model.ParseTask, error) {
	return nil, nil
}

type fakeKBDao struct {
	dao.KnowledgeBaseDao
	doc     *model.Document
	updated *model.Document
}

func (d *fakeKBDao) GetDocumentByID(docID string) (*model.Document, error) {
	if d.doc == nil || d.doc.ID != docID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *d.doc
	return &copied, nil
}

func (d *fakeKBDao) UpdateDocument(doc *model.Document) error {
	d.updated = doc
	return nil
}

type fakeFileDao struct {
	dao.FileDao
	file *model.File
}

func (d *fakeFileDao) GetFileMetaByFileID(string) (*model.File, error) {
	return d.file, nil
}

type fakeDriver struct {
	storage.Driver
	content []byte
	err     error
}

func (d *fakeDriver) GetObject(context.Context, string) ([]byte, error) {
	return d.content, d.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) New(context.Context, *model.Model, ...embedding.EmbeddingOption) (embedding.EmbeddingService, error) {
	return fakeEmbedder{}, nil
}

func (fakeEmbedder) EmbedStrings(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3, float64(len(texts[i]))}
	}
	return out, nil
}

func (fakeEmbedder) GetDimension() int { return testDim }

type fakeResolver struct {
	err error
}

func (r *fakeResolver) Resolve(context.Context, string) (*service.Binding, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &service.Binding{Embedder: fakeEmbedder{}, Dimension: testDim}, nil
}

type fakeEnsurer struct{}

func (fakeEnsurer) Ensure(_ context.Context, kbID string, _ int) (string, error) {
	return "kb_" + kbID, nil
}

type fakeStore struct {
	mu       sync.Mutex
	deletes  []string
	inserted []model.Chunk
	flushed  int
	// insertBeforeDelete 捕获未先清理就写入的违规顺序
	insertBeforeDelete bool
}

func (s *fakeStore) InsertChunks(_ context.Context, _ string, chunks []model.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deletes) == 0 {
		s.insertBeforeDelete = true
	}
	s.inserted = append(s.inserted, chunks...)
	return nil
}

func (s *fakeStore) DeleteByDocumentID(_ context.Context, _ string, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, docID)
	return nil
}

func (s *fakeStore) HybridSearch(context.Context, string, string, []float32, string, int) ([]vector.SearchHit, error) {
	return nil, nil
}

func (s *fakeStore) CollectionDim(context.Context, string) (int, error) { return testDim, nil }

func (s *fakeStore) Flush(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed++
	return nil
}

type fakeSegmenter struct {
	segments []splitter.Segment
	err      error
}

func (s *fakeSegmenter) Split(context.Context, []byte, string, model.ParserConfig) ([]splitter.Segment, error) {
	return s.segments, s.err
}

func testSegments(n int) []splitter.Segment {
	segs := make([]splitter.Segment, n)
	for i := range segs {
		segs[i] = splitter.Segment{
			Content:  fmt.Sprintf("chunk content %d", i),
			Index:    i,
			Metadata: map[string]interface{}{"position": i},
		}
	}
	return segs
}

type pipelineEnv struct {
	taskDao   *fakeTaskDao
	kbDao     *fakeKBDao
	store     *fakeStore
	segmenter *fakeSegmenter
	resolver  *fakeResolver
	driver    *fakeDriver
	msg       *queue.Message
}

func newPipelineEnv(segments int) *pipelineEnv {
	return &pipelineEnv{
		taskDao: newFakeTaskDao(&model.ParseTask{
			ID:              "task-1",
			DocumentID:      "doc-1",
			KnowledgeBaseID: "kb-1",
			Status:          model.TaskStatusQueued,
		}),
		kbDao: &fakeKBDao{doc: &model.Document{
			ID:              "doc-1",
			KnowledgeBaseID: "kb-1",
			FileID:          "file-1",
			Title:           "退款政策.txt",
			DocType:         "text/plain",
		}},
		store:     &fakeStore{},
		segmenter: &fakeSegmenter{segments: testSegments(segments)},
		resolver:  &fakeResolver{},
		driver:    &fakeDriver{content: []byte("退款政策全文")},
		msg: &queue.Message{
			TaskID:          "task-1",
			DocumentID:      "doc-1",
			KnowledgeBaseID: "kb-1",
		},
	}
}

func (e *pipelineEnv) build(batchSize int) Ingestor {
	return NewIngestor(
		e.taskDao,
		e.kbDao,
		&fakeFileDao{file: &model.File{ID: "file-1", StorageKey: "files/file-1", MIMEType: "text/plain"}},
		e.resolver,
		fakeEnsurer{},
		e.store,
		e.driver,
		e.segmenter,
		batchSize,
		zap.NewNop(),
	)
}

func TestIngestor_Success(t *testing.T) {
	env := newPipelineEnv(5)
	ing := env.build(2)

	err := ing.Run(context.Background(), env.msg)
	require.NoError(t, err)

	// 状态按阶段推进
	require.Equal(t, model.TaskStatusDownloading, env.taskDao.statuses[0])
	require.Contains(t, env.taskDao.statuses, model.TaskStatusChunking)
	require.Contains(t, env.taskDao.statuses, model.TaskStatusEmbedding)
	require.Equal(t, model.TaskStatusIndexing, env.taskDao.statuses[len(env.taskDao.statuses)-1])

	// 先删后插，chunk ID由文档ID+序号确定性派生
	require.False(t, env.store.insertBeforeDelete)
	require.Equal(t, []string{"doc-1"}, env.store.deletes)
	require.Len(t, env.store.inserted, 5)
	for i, chunk := range env.store.inserted {
		require.Equal(t, fmt.Sprintf("doc-1_%d", i), chunk.ID)
		require.Equal(t, "kb-1", chunk.KBID)
		require.Len(t, chunk.Embeddings, testDim)
	}
	require.Equal(t, 1, env.store.flushed)
	require.NotNil(t, env.kbDao.updated)
	require.Equal(t, 5, env.kbDao.updated.ChunkCount)
}

func TestIngestor_RerunIsIdempotent(t *testing.T) {
	env := newPipelineEnv(3)
	ing := env.build(16)

	require.NoError(t, ing.Run(context.Background(), env.msg))
	require.NoError(t, ing.Run(context.Background(), env.msg))

	// 两次运行产生同一批主键，且每次运行前都清理了旧向量
	require.Equal(t, []string{"doc-1", "doc-1"}, env.store.deletes)
	require.Len(t, env.store.inserted, 6)
	require.Equal(t, env.store.inserted[0].ID, env.store.inserted[3].ID)
}

func TestIngestor_EmptyDocumentIsFatal(t *testing.T) {
	env := newPipelineEnv(0)
	env.segmenter.err = splitter.ErrEmptyContent
	ing := env.build(16)

	err := ing.Run(context.Background(), env.msg)
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.Empty(t, env.store.inserted)
}

func TestIngestor_DownloadFailureIsRetryable(t *testing.T) {
	env := newPipelineEnv(3)
	env.driver.err = errors.New("connection refused")
	ing := env.build(16)

	err := ing.Run(context.Background(), env.msg)
	require.Error(t, err)
	require.False(t, IsFatal(err))
	require.NotErrorIs(t, err, ErrCancelled)
}

func TestIngestor_InvalidBindingIsFatal(t *testing.T) {
	env := newPipelineEnv(3)
	env.resolver.err = fmt.Errorf("%w: 模型不存在", service.ErrBindingInvalid)
	ing := env.build(16)

	err := ing.Run(context.Background(), env.msg)
	require.True(t, IsFatal(err))
}

func TestIngestor_CancelledBeforeStart(t *testing.T) {
	env := newPipelineEnv(3)
	env.taskDao.tasks["task-1"].Status = model.TaskStatusCancelled
	ing := env.build(16)

	err := ing.Run(context.Background(), env.msg)
	require.ErrorIs(t, err, ErrCancelled)
	require.Empty(t, env.store.deletes)
}

func TestIngestor_CancelledMidway(t *testing.T) {
	env := newPipelineEnv(3)
	// 分块阶段之后任务被外部取消
	env.taskDao.cancelAfter = model.TaskStatusChunking
	ing := env.build(16)

	err := ing.Run(context.Background(), env.msg)
	require.ErrorIs(t, err, ErrCancelled)
	// 向量未写入
	require.Empty(t, env.store.inserted)
}

func TestIngestor_DoneTaskIsNoop(t *testing.T) {
	env := newPipelineEnv(3)
	env.taskDao.tasks["task-1"].Status = model.TaskStatusDone
	ing := env.build(16)

	require.NoError(t, ing.Run(context.Background(), env.msg))
	require.Empty(t, env.store.deletes)
	require.Empty(t, env.store.inserted)
}
