package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"kb-engine/config"
	"kb-engine/internal/component/rerank"
	"kb-engine/internal/model"
	"kb-engine/internal/service"
	"kb-engine/internal/utils"
	"kb-engine/internal/vector"

	"go.uber.org/zap"
)

// ErrInvalidQuery 查询参数不合法
var ErrInvalidQuery = errors.New("查询参数不合法")

// CollectionLookup 检索侧需要的集合信息
type CollectionLookup interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CollectionDim(ctx context.Context, name string) (int, error)
}

// Engine 两阶段检索引擎：粗排混合召回 + 精排重排序
type Engine struct {
	resolver    service.BindingResolver
	store       vector.Store
	collections CollectionLookup
	reranker    rerank.Reranker // nil表示未启用精排
	cfg         config.RetrievalConfig
	prefix      string
	logger      *zap.Logger
}

// NewEngine 创建检索引擎，reranker为nil时仅按召回分数排序
func NewEngine(
	resolver service.BindingResolver,
	store vector.Store,
	collections CollectionLookup,
	reranker rerank.Reranker,
	cfg config.RetrievalConfig,
	collectionPrefix string,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		resolver:    resolver,
		store:       store,
		collections: collections,
		reranker:    reranker,
		cfg:         cfg,
		prefix:      collectionPrefix,
		logger:      logger,
	}
}

// scoredChunk 候选块带召回排名，供rerank不可用时回退
type scoredChunk struct {
	hit        vector.SearchHit
	recallRank int
}

// Retrieve 跨知识库检索
// 召回上限与返回数量缺省取配置值；多知识库要求绑定同一embedding模型
func (e *Engine) Retrieve(ctx context.Context, req *model.RetrieveRequest) (*model.RetrieveResponse, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: 查询内容为空", ErrInvalidQuery)
	}
	if len(req.KBIDs) == 0 {
		return nil, fmt.Errorf("%w: 未指定知识库", ErrInvalidQuery)
	}

	recallLimit := req.RecallLimit
	if recallLimit <= 0 || recallLimit > e.cfg.RecallLimit {
		recallLimit = e.cfg.RecallLimit
	}
	finalLimit := req.FinalLimit
	if finalLimit <= 0 {
		finalLimit = e.cfg.FinalLimit
	}
	if finalLimit > recallLimit {
		finalLimit = recallLimit
	}

	// 逐个解析知识库的embedding绑定：查询向量必须与索引时的向量空间一致，
	// 仅凭维度相同无法区分不同模型，绑定不一致视为配置错误
	bindings := make([]*service.Binding, len(req.KBIDs))
	for i, kbID := range req.KBIDs {
		b, err := e.resolver.Resolve(ctx, kbID)
		if err != nil {
			return nil, err
		}
		bindings[i] = b
	}
	binding := bindings[0]
	for i := 1; i < len(bindings); i++ {
		if bindingModelID(bindings[i]) != bindingModelID(binding) {
			return nil, fmt.Errorf("%w: 知识库%s与%s绑定了不同的embedding模型",
				service.ErrBindingInvalid, req.KBIDs[i], req.KBIDs[0])
		}
	}

	vecs, err := binding.Embedder.EmbedStrings(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("查询向量化失败: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("查询向量化结果异常")
	}
	queryVec := utils.ConvertFloat64ToFloat32Embedding(vecs[0])

	// 逐知识库召回后合并，按融合分数全局排序
	var candidates []scoredChunk
	for _, kbID := range req.KBIDs {
		hits, err := e.recallKB(ctx, kbID, queryVec, req.Query, recallLimit, binding.Dimension)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			candidates = append(candidates, scoredChunk{hit: hit})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].hit.Score > candidates[j].hit.Score
	})
	if len(candidates) > recallLimit {
		candidates = candidates[:recallLimit]
	}

	// 召回分数阈值过滤
	if e.cfg.ScoreThreshold > 0 {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.hit.Score >= e.cfg.ScoreThreshold {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	for i := range candidates {
		candidates[i].recallRank = i
	}

	// 未配置reranker时返回召回排序，与精排成功的结果必须可区分
	degraded := e.reranker == nil

	if len(candidates) == 0 {
		return &model.RetrieveResponse{Results: []model.RetrievedChunk{}, RerankDegraded: degraded}, nil
	}

	// 精排
	rerankScores := make([]float64, len(candidates))
	if e.reranker != nil {
		docs := make([]string, len(candidates))
		for i, c := range candidates {
			docs[i] = c.hit.Chunk.Content
		}
		scores, err := e.reranker.Rerank(ctx, req.Query, docs)
		if err != nil || len(scores) != len(candidates) {
			// 精排不可用时回退召回排序，显式标记降级
			e.logger.Warn("重排序失败，回退召回排序",
				zap.String("reranker", e.reranker.Name()), zap.Error(err))
			degraded = true
		} else {
			rerankScores = scores
			order := make([]int, len(candidates))
			for i := range order {
				order[i] = i
			}
			sort.SliceStable(order, func(i, j int) bool {
				si, sj := rerankScores[order[i]], rerankScores[order[j]]
				if si != sj {
					return si > sj
				}
				// 分数并列时按召回排名稳定
				return candidates[order[i]].recallRank < candidates[order[j]].recallRank
			})
			reordered := make([]scoredChunk, len(candidates))
			reorderedScores := make([]float64, len(candidates))
			for i, idx := range order {
				reordered[i] = candidates[idx]
				reorderedScores[i] = rerankScores[idx]
			}
			candidates = reordered
			rerankScores = reorderedScores
		}
	}

	if len(candidates) > finalLimit {
		candidates = candidates[:finalLimit]
		rerankScores = rerankScores[:finalLimit]
	}

	results := make([]model.RetrievedChunk, len(candidates))
	for i, c := range candidates {
		results[i] = model.RetrievedChunk{
			ChunkID:      c.hit.Chunk.ID,
			Content:      c.hit.Chunk.Content,
			KBID:         c.hit.Chunk.KBID,
			DocumentID:   c.hit.Chunk.DocumentID,
			DocumentName: c.hit.Chunk.DocumentName,
			ChunkIndex:   c.hit.Chunk.Index,
			RecallScore:  c.hit.Score,
			RerankScore:  rerankScores[i],
		}
	}
	return &model.RetrieveResponse{Results: results, RerankDegraded: degraded}, nil
}

// bindingModelID 绑定所指向的embedding模型ID
func bindingModelID(b *service.Binding) string {
	if b == nil || b.Model == nil {
		return ""
	}
	return b.Model.ID
}

// recallKB 单知识库混合召回，集合不存在视为空知识库
func (e *Engine) recallKB(ctx context.Context, kbID string, queryVec []float32, queryText string, limit, dim int) ([]vector.SearchHit, error) {
	collection := vector.CollectionName(e.prefix, kbID)

	exists, err := e.collections.HasCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("检查集合失败: %w", err)
	}
	if !exists {
		return nil, nil
	}

	collDim, err := e.collections.CollectionDim(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("读取集合维度失败: %w", err)
	}
	if collDim != dim {
		return nil, fmt.Errorf("%w: 知识库%s集合维度=%d与查询向量维度=%d不一致",
			vector.ErrDimensionMismatch, kbID, collDim, dim)
	}

	hits, err := e.store.HybridSearch(ctx, collection, kbID, queryVec, queryText, limit)
	if err != nil {
		return nil, fmt.Errorf("知识库%s检索失败: %w", kbID, err)
	}
	return hits, nil
}
