package dao

import (
	"context"
	"testing"

	"kb-engine/internal/database"
	"kb-engine/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestParseTaskDao_StatusLifecycle(t *testing.T) {
	d := NewParseTaskDao(newTestDB(t))
	ctx := context.Background()

	task := &model.ParseTask{
		ID:              "task-1",
		DocumentID:      "doc-1",
		KnowledgeBaseID: "kb-1",
		Status:          model.TaskStatusQueued,
	}
	require.NoError(t, d.Create(ctx, task))

	// 每个阶段持久化一次，外部可轮询
	require.NoError(t, d.UpdateStatus(ctx, "task-1", model.TaskStatusEmbedding, 0.5, ""))
	got, err := d.GetByID(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusEmbedding, got.Status)
	require.InDelta(t, 0.5, got.Progress, 1e-9)

	// 失败时保留最后一次错误信息
	require.NoError(t, d.UpdateStatus(ctx, "task-1", model.TaskStatusFailed, 0.5, "embedding服务超时"))
	got, err = d.GetByID(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusFailed, got.Status)
	require.Equal(t, "embedding服务超时", got.ErrorMsg)
}

func TestParseTaskDao_UpdateStatusMissingTask(t *testing.T) {
	d := NewParseTaskDao(newTestDB(t))
	err := d.UpdateStatus(context.Background(), "missing", model.TaskStatusDone, 1, "")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestParseTaskDao_HasActiveTask(t *testing.T) {
	d := NewParseTaskDao(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, d.Create(ctx, &model.ParseTask{
		ID: "t1", DocumentID: "doc-1", KnowledgeBaseID: "kb-1", Status: model.TaskStatusQueued,
	}))

	active, err := d.HasActiveTask(ctx, "doc-1")
	require.NoError(t, err)
	require.True(t, active)

	require.NoError(t, d.UpdateStatus(ctx, "t1", model.TaskStatusDone, 1, ""))
	active, err = d.HasActiveTask(ctx, "doc-1")
	require.NoError(t, err)
	require.False(t, active)
}

func TestParseTaskDao_CancelByDocument(t *testing.T) {
	d := NewParseTaskDao(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, d.Create(ctx, &model.ParseTask{
		ID: "t1", DocumentID: "doc-1", KnowledgeBaseID: "kb-1", Status: model.TaskStatusQueued,
	}))
	require.NoError(t, d.Create(ctx, &model.ParseTask{
		ID: "t2", DocumentID: "doc-1", KnowledgeBaseID: "kb-1", Status: model.TaskStatusDone,
	}))

	require.NoError(t, d.CancelByDocument(ctx, "doc-1"))

	t1, err := d.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusCancelled, t1.Status)

	// 已终态任务不受影响
	t2, err := d.GetByID(ctx, "t2")
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusDone, t2.Status)
}

func TestKnowledgeBaseDao_DocumentRoundtrip(t *testing.T) {
	d := NewKnowledgeBaseDao(newTestDB(t))

	kb := &model.KnowledgeBase{
		ID: "kb-1", Name: "产品文档", EmbedModelID: "m-1", MilvusCollection: "kb_kb_1",
	}
	require.NoError(t, d.CreateKB(kb))

	doc := &model.Document{
		ID: "doc-1", KnowledgeBaseID: "kb-1", FileID: "f-1", Title: "handbook.pdf",
	}
	require.NoError(t, d.CreateDocument(doc))

	got, err := d.GetDocumentByID("doc-1")
	require.NoError(t, err)
	require.Equal(t, "kb-1", got.KnowledgeBaseID)

	docs, err := d.GetAllDocsByKBID("kb-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, d.DeleteDocs([]string{"doc-1"}))
	docs, err = d.GetAllDocsByKBID("kb-1")
	require.NoError(t, err)
	require.Empty(t, docs)
}
