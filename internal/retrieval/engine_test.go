package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"kb-engine/config"
	"kb-engine/internal/component/embedding"
	"kb-engine/internal/component/rerank"
	"kb-engine/internal/model"
	"kb-engine/internal/service"
	"kb-engine/internal/vector"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDim = 4

type fakeEmbedder struct{}

func (fakeEmbedder) New(context.Context, *model.Model, ...embedding.EmbeddingOption) (embedding.EmbeddingService, error) {
	return fakeEmbedder{}, nil
}

func (fakeEmbedder) EmbedStrings(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.1, 0.2, 0.3, 0.4}
	}
	return out, nil
}

func (fakeEmbedder) GetDimension() int { return testDim }

// fakeResolver 记录每次解析的知识库，支持按知识库配置不同的模型绑定
type fakeResolver struct {
	models   map[string]string // kbID -> embedding模型ID，缺省m-1
	resolved []string
}

func (r *fakeResolver) Resolve(_ context.Context, kbID string) (*service.Binding, error) {
	r.resolved = append(r.resolved, kbID)
	modelID := "m-1"
	if id, ok := r.models[kbID]; ok {
		modelID = id
	}
	return &service.Binding{
		Model:     &model.Model{ID: modelID, Type: "embedding", Dimension: testDim},
		Embedder:  fakeEmbedder{},
		Dimension: testDim,
	}, nil
}

type fakeLookup struct {
	dims map[string]int // 集合名 -> 维度；缺失表示集合不存在
}

func (f *fakeLookup) HasCollection(_ context.Context, name string) (bool, error) {
	_, ok := f.dims[name]
	return ok, nil
}

func (f *fakeLookup) CollectionDim(_ context.Context, name string) (int, error) {
	return f.dims[name], nil
}

type fakeSearchStore struct {
	vector.Store
	// hitsByKB 每个知识库的召回结果
	hitsByKB map[string][]vector.SearchHit
	limits   []int
}

func (s *fakeSearchStore) HybridSearch(_ context.Context, _ string, kbID string, _ []float32, _ string, limit int) ([]vector.SearchHit, error) {
	s.limits = append(s.limits, limit)
	hits := s.hitsByKB[kbID]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

type fakeReranker struct {
	scores []float64
	err    error
	calls  int
}

func (r *fakeReranker) Rerank(_ context.Context, _ string, docs []string) ([]float64, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.scores[:len(docs)], nil
}

func (r *fakeReranker) Name() string { return "fake" }

func hit(id, kbID string, score float64) vector.SearchHit {
	return vector.SearchHit{
		Chunk: model.Chunk{ID: id, KBID: kbID, Content: "content of " + id},
		Score: score,
	}
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{RecallLimit: 1024, FinalLimit: 5}
}

func newEngine(store *fakeSearchStore, lookup *fakeLookup, rr *fakeReranker, cfg config.RetrievalConfig) *Engine {
	var reranker rerank.Reranker
	if rr != nil {
		reranker = rr
	}
	return NewEngine(&fakeResolver{}, store, lookup, reranker, cfg, "kb", zap.NewNop())
}

func TestEngine_RerankOrdersResults(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{
		"kb-1": {hit("c1", "kb-1", 0.9), hit("c2", "kb-1", 0.8), hit("c3", "kb-1", 0.7)},
	}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim}}
	// 精排把召回第三名提到第一
	rr := &fakeReranker{scores: []float64{0.2, 0.5, 0.95}}
	eng := newEngine(store, lookup, rr, testConfig())

	resp, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "退款政策", KBIDs: []string{"kb-1"},
	})
	require.NoError(t, err)
	require.False(t, resp.RerankDegraded)
	require.Len(t, resp.Results, 3)
	require.Equal(t, "c3", resp.Results[0].ChunkID)
	require.Equal(t, 0.95, resp.Results[0].RerankScore)
	require.Equal(t, 0.7, resp.Results[0].RecallScore)
	require.Equal(t, "c2", resp.Results[1].ChunkID)
	require.Equal(t, "c1", resp.Results[2].ChunkID)
}

func TestEngine_RerankTieBreaksByRecallRank(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{
		"kb-1": {hit("c1", "kb-1", 0.9), hit("c2", "kb-1", 0.8)},
	}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim}}
	rr := &fakeReranker{scores: []float64{0.5, 0.5}}
	eng := newEngine(store, lookup, rr, testConfig())

	resp, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1"},
	})
	require.NoError(t, err)
	// 精排分数并列时保持召回序
	require.Equal(t, "c1", resp.Results[0].ChunkID)
	require.Equal(t, "c2", resp.Results[1].ChunkID)
}

func TestEngine_RerankFailureDegradesToRecallOrder(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{
		"kb-1": {hit("c1", "kb-1", 0.9), hit("c2", "kb-1", 0.8)},
	}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim}}
	rr := &fakeReranker{err: errors.New("rerank service down")}
	eng := newEngine(store, lookup, rr, testConfig())

	resp, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1"},
	})
	require.NoError(t, err)
	require.True(t, resp.RerankDegraded)
	require.Equal(t, "c1", resp.Results[0].ChunkID)
	require.Equal(t, float64(0), resp.Results[0].RerankScore)
}

func TestEngine_MergesAcrossKnowledgeBases(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{
		"kb-1": {hit("a1", "kb-1", 0.6)},
		"kb-2": {hit("b1", "kb-2", 0.95), hit("b2", "kb-2", 0.3)},
	}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim, "kb_kb_2": testDim}}
	eng := newEngine(store, lookup, nil, testConfig())

	resp, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1", "kb-2"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	// 跨库按召回分数全局排序
	require.Equal(t, "b1", resp.Results[0].ChunkID)
	require.Equal(t, "a1", resp.Results[1].ChunkID)
	require.Equal(t, "b2", resp.Results[2].ChunkID)
}

func TestEngine_ResolvesBindingForEveryKB(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{
		"kb-1": {hit("a1", "kb-1", 0.6)},
		"kb-2": {hit("b1", "kb-2", 0.9)},
	}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim, "kb_kb_2": testDim}}
	resolver := &fakeResolver{}
	eng := NewEngine(resolver, store, lookup, nil, testConfig(), "kb", zap.NewNop())

	_, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1", "kb-2"},
	})
	require.NoError(t, err)
	// 每个知识库的绑定都被校验过
	require.Equal(t, []string{"kb-1", "kb-2"}, resolver.resolved)
}

func TestEngine_MixedEmbeddingBindingsRejected(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim, "kb_kb_2": testDim}}
	// 两个模型维度相同，仅凭维度无法区分向量空间
	resolver := &fakeResolver{models: map[string]string{"kb-1": "m-1", "kb-2": "m-2"}}
	eng := NewEngine(resolver, store, lookup, nil, testConfig(), "kb", zap.NewNop())

	_, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1", "kb-2"},
	})
	require.ErrorIs(t, err, service.ErrBindingInvalid)
	// 配置错误在召回前拦截
	require.Empty(t, store.limits)
}

func TestEngine_NoRerankerFlagsDegraded(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{
		"kb-1": {hit("c1", "kb-1", 0.9)},
	}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim}}
	eng := newEngine(store, lookup, nil, testConfig())

	resp, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1"},
	})
	require.NoError(t, err)
	// 未启用精排时必须显式标记，与精排成功不可混淆
	require.True(t, resp.RerankDegraded)
	require.Equal(t, "c1", resp.Results[0].ChunkID)

	// 空结果同样携带标记
	empty, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-missing"},
	})
	require.NoError(t, err)
	require.True(t, empty.RerankDegraded)
}

func TestEngine_FinalLimitCapsResults(t *testing.T) {
	var hits []vector.SearchHit
	for i := 0; i < 20; i++ {
		hits = append(hits, hit(fmt.Sprintf("c%d", i), "kb-1", 1.0-float64(i)*0.01))
	}
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{"kb-1": hits}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim}}
	eng := newEngine(store, lookup, nil, testConfig())

	resp, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 5)
}

func TestEngine_RecallLimitClampedToConfig(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{"kb-1": nil}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim}}
	eng := newEngine(store, lookup, nil, config.RetrievalConfig{RecallLimit: 100, FinalLimit: 5})

	_, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1"}, RecallLimit: 9999,
	})
	require.NoError(t, err)
	require.Equal(t, []int{100}, store.limits)
}

func TestEngine_ScoreThresholdFilters(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{
		"kb-1": {hit("c1", "kb-1", 0.9), hit("c2", "kb-1", 0.1)},
	}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": testDim}}
	eng := newEngine(store, lookup, nil, config.RetrievalConfig{RecallLimit: 1024, FinalLimit: 5, ScoreThreshold: 0.5})

	resp, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Equal(t, "c1", resp.Results[0].ChunkID)
}

func TestEngine_MissingCollectionIsEmptyKB(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{}}
	lookup := &fakeLookup{dims: map[string]int{}}
	eng := newEngine(store, lookup, nil, testConfig())

	resp, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1"},
	})
	require.NoError(t, err)
	require.Empty(t, resp.Results)
}

func TestEngine_DimensionMismatchRejected(t *testing.T) {
	store := &fakeSearchStore{hitsByKB: map[string][]vector.SearchHit{}}
	lookup := &fakeLookup{dims: map[string]int{"kb_kb_1": 768}}
	eng := newEngine(store, lookup, nil, testConfig())

	_, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{
		Query: "q", KBIDs: []string{"kb-1"},
	})
	require.ErrorIs(t, err, vector.ErrDimensionMismatch)
}

func TestEngine_InvalidRequest(t *testing.T) {
	eng := newEngine(&fakeSearchStore{}, &fakeLookup{}, nil, testConfig())

	_, err := eng.Retrieve(context.Background(), &model.RetrieveRequest{KBIDs: []string{"kb-1"}})
	require.ErrorIs(t, err, ErrInvalidQuery)

	_, err = eng.Retrieve(context.Background(), &model.RetrieveRequest{Query: "q"})
	require.ErrorIs(t, err, ErrInvalidQuery)
}
