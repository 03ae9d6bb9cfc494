package vector

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"kb-engine/config"
	"kb-engine/internal/model"
	"kb-engine/pkgs/consts"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusStore 基于Milvus的向量存储，实现Store与Admin接口
// 每个知识库对应一个集合，集合带稠密向量与稀疏向量两个索引字段
type MilvusStore struct {
	mv  client.Client
	cfg config.MilvusConfig
}

// NewMilvusStore 创建Milvus向量存储
func NewMilvusStore(mv client.Client, cfg config.MilvusConfig) *MilvusStore {
	return &MilvusStore{mv: mv, cfg: cfg}
}

// HasCollection 集合是否存在
func (m *MilvusStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return m.mv.HasCollection(ctx, name)
}

// CreateCollection 按维度创建集合并建立索引
// 使用create-if-not-exists语义：并发创建时已存在不视为错误
func (m *MilvusStore) CreateCollection(ctx context.Context, name string, dim int) error {
	schema := entity.NewSchema().
		WithName(name).
		WithDescription("knowledge base text chunks").
		WithField(entity.NewField().
			WithName(consts.FieldNameID).
			WithDataType(entity.FieldTypeVarChar).
			WithIsPrimaryKey(true).
			WithMaxLength(m.cfg.IDMaxLength)).
		WithField(entity.NewField().
			WithName(consts.FieldNameContent).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(m.cfg.ContentMaxLength)).
		WithField(entity.NewField().
			WithName(consts.FieldNameDocumentID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(m.cfg.DocIDMaxLength)).
		WithField(entity.NewField().
			WithName(consts.FieldNameDocumentName).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(m.cfg.DocNameMaxLength)).
		WithField(entity.NewField().
			WithName(consts.FieldNameKBID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(m.cfg.KbIDMaxLength)).
		WithField(entity.NewField().
			WithName(consts.FieldNameChunkIndex).
			WithDataType(entity.FieldTypeInt32)).
		WithField(entity.NewField().
			WithName(consts.FieldNameMetadata).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(m.cfg.ContentMaxLength)).
		WithField(entity.NewField().
			WithName(consts.FieldNameVector).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim))).
		WithField(entity.NewField().
			WithName(consts.FieldNameSparse).
			WithDataType(entity.FieldTypeSparseVector))

	if err := m.mv.CreateCollection(ctx, schema, 1); err != nil {
		// 并发创建时另一worker可能抢先，已存在视为成功
		if strings.Contains(err.Error(), "already exist") {
			return nil
		}
		return fmt.Errorf("创建集合失败: %w", err)
	}

	// 稠密向量索引
	denseIdx, err := m.cfg.GetMilvusIndex()
	if err != nil {
		return fmt.Errorf("构建稠密索引失败: %w", err)
	}
	if err := m.mv.CreateIndex(ctx, name, consts.FieldNameVector, denseIdx, false); err != nil {
		return fmt.Errorf("创建稠密索引失败: %w", err)
	}

	// 稀疏向量倒排索引（词法召回）
	sparseIdx, err := entity.NewIndexSparseInverted(entity.IP, m.cfg.SparseDropRatio)
	if err != nil {
		return fmt.Errorf("构建稀疏索引失败: %w", err)
	}
	if err := m.mv.CreateIndex(ctx, name, consts.FieldNameSparse, sparseIdx, false); err != nil {
		return fmt.Errorf("创建稀疏索引失败: %w", err)
	}

	if err := m.mv.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("加载集合失败: %w", err)
	}
	return nil
}

// DropCollection 删除集合（知识库删除时随之清理）
func (m *MilvusStore) DropCollection(ctx context.Context, name string) error {
	exists, err := m.mv.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("检查集合失败: %w", err)
	}
	if !exists {
		return nil
	}
	if err := m.mv.DropCollection(ctx, name); err != nil {
		return fmt.Errorf("删除集合失败: %w", err)
	}
	return nil
}

// CollectionDim 读取集合稠密向量字段的维度
func (m *MilvusStore) CollectionDim(ctx context.Context, name string) (int, error) {
	coll, err := m.mv.DescribeCollection(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("获取集合信息失败: %w", err)
	}
	for _, field := range coll.Schema.Fields {
		if field.Name != consts.FieldNameVector {
			continue
		}
		dimStr, ok := field.TypeParams[entity.TypeParamDim]
		if !ok {
			return 0, fmt.Errorf("集合%s向量字段缺少维度参数", name)
		}
		dim, err := strconv.Atoi(dimStr)
		if err != nil {
			return 0, fmt.Errorf("集合%s维度参数非法: %w", name, err)
		}
		return dim, nil
	}
	return 0, fmt.Errorf("集合%s缺少向量字段", name)
}

// InsertChunks 按序插入文本块，稀疏向量由内容确定性派生
func (m *MilvusStore) InsertChunks(ctx context.Context, collection string, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var (
		ids       []string
		contents  []string
		docIDs    []string
		docNames  []string
		kbIDs     []string
		indices   []int32
		metadatas []string
		vectors   [][]float32
		sparse    []entity.SparseEmbedding
	)

	dim := len(chunks[0].Embeddings)
	for _, chunk := range chunks {
		if len(chunk.Embeddings) != dim {
			return fmt.Errorf("文本块%s向量维度不一致: %d != %d", chunk.ID, len(chunk.Embeddings), dim)
		}

		// 文档名按rune截断到字段上限，不能把多字节字符切半
		docName := truncateRunes(chunk.DocumentName, m.cfg.DocNameMaxLength)

		sp, err := EncodeSparse(chunk.Content)
		if err != nil {
			return fmt.Errorf("编码稀疏向量失败: %w", err)
		}

		ids = append(ids, chunk.ID)
		contents = append(contents, chunk.Content)
		docIDs = append(docIDs, chunk.DocumentID)
		docNames = append(docNames, docName)
		kbIDs = append(kbIDs, chunk.KBID)
		indices = append(indices, int32(chunk.Index))
		metadatas = append(metadatas, chunk.Metadata)
		vectors = append(vectors, chunk.Embeddings)
		sparse = append(sparse, sp)
	}

	_, err := m.mv.Insert(
		ctx,
		collection,
		"",
		entity.NewColumnVarChar(consts.FieldNameID, ids),
		entity.NewColumnVarChar(consts.FieldNameContent, contents),
		entity.NewColumnVarChar(consts.FieldNameDocumentID, docIDs),
		entity.NewColumnVarChar(consts.FieldNameDocumentName, docNames),
		entity.NewColumnVarChar(consts.FieldNameKBID, kbIDs),
		entity.NewColumnInt32(consts.FieldNameChunkIndex, indices),
		entity.NewColumnVarChar(consts.FieldNameMetadata, metadatas),
		entity.NewColumnFloatVector(consts.FieldNameVector, dim, vectors),
		entity.NewColumnSparseVectors(consts.FieldNameSparse, sparse),
	)
	if err != nil {
		return fmt.Errorf("插入向量数据失败: %w", err)
	}
	return nil
}

// DeleteByDocumentID 删除文档的全部文本块
func (m *MilvusStore) DeleteByDocumentID(ctx context.Context, collection string, docID string) error {
	expr := fmt.Sprintf(`%s == "%s"`, consts.FieldNameDocumentID, docID)
	if err := m.mv.Delete(ctx, collection, "", expr); err != nil {
		return fmt.Errorf("删除向量数据失败: %w", err)
	}
	return nil
}

// Flush 持久化集合写入
func (m *MilvusStore) Flush(ctx context.Context, collection string) error {
	if err := m.mv.Flush(ctx, collection, false); err != nil {
		return fmt.Errorf("集合flush失败: %w", err)
	}
	return nil
}

// HybridSearch 稠密+稀疏双路召回，RRF融合为单一候选集
func (m *MilvusStore) HybridSearch(ctx context.Context, collection string, kbID string, dense []float32, queryText string, limit int) ([]SearchHit, error) {
	expr := fmt.Sprintf(`%s == "%s"`, consts.FieldNameKBID, kbID)

	denseParam, err := m.cfg.GetSearchParam()
	if err != nil {
		return nil, fmt.Errorf("构建搜索参数失败: %w", err)
	}
	denseReq := client.NewANNSearchRequest(
		consts.FieldNameVector,
		m.cfg.GetMetricType(),
		expr,
		[]entity.Vector{entity.FloatVector(dense)},
		denseParam,
		limit,
	)

	subRequests := []*client.ANNSearchRequest{denseReq}

	// 词法子请求：查询编码失败时退化为仅稠密召回
	if sparseVec, err := EncodeSparse(queryText); err == nil {
		sparseParam, spErr := entity.NewIndexSparseInvertedSearchParam(m.cfg.SparseDropRatio)
		if spErr == nil {
			subRequests = append(subRequests, client.NewANNSearchRequest(
				consts.FieldNameSparse,
				entity.IP,
				expr,
				[]entity.Vector{sparseVec},
				sparseParam,
				limit,
			))
		}
	}

	results, err := m.mv.HybridSearch(
		ctx,
		collection,
		nil,
		limit,
		consts.SearchFields,
		client.NewRRFReranker(),
		subRequests,
	)
	if err != nil {
		return nil, fmt.Errorf("混合检索失败: %w", err)
	}

	return parseSearchResults(results)
}

// truncateRunes 按rune截断，max<=0表示不限制
func truncateRunes(s string, max int64) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if int64(len(runes)) <= max {
		return s
	}
	return string(runes[:max])
}

// parseSearchResults 将Milvus搜索结果转换为SearchHit，按分数降序
func parseSearchResults(results []client.SearchResult) ([]SearchHit, error) {
	var hits []SearchHit

	for _, result := range results {
		if result.Err != nil {
			return nil, fmt.Errorf("检索结果错误: %w", result.Err)
		}
		if result.ResultCount == 0 {
			continue
		}
		if result.IDs == nil || result.Fields == nil {
			return nil, fmt.Errorf("检索结果缺少字段")
		}

		contentCol, _ := result.Fields.GetColumn(consts.FieldNameContent).(*entity.ColumnVarChar)
		docIDCol, _ := result.Fields.GetColumn(consts.FieldNameDocumentID).(*entity.ColumnVarChar)
		docNameCol, _ := result.Fields.GetColumn(consts.FieldNameDocumentName).(*entity.ColumnVarChar)
		kbIDCol, _ := result.Fields.GetColumn(consts.FieldNameKBID).(*entity.ColumnVarChar)
		indexCol, _ := result.Fields.GetColumn(consts.FieldNameChunkIndex).(*entity.ColumnInt32)
		metaCol, _ := result.Fields.GetColumn(consts.FieldNameMetadata).(*entity.ColumnVarChar)
		if contentCol == nil || docIDCol == nil || kbIDCol == nil || indexCol == nil {
			return nil, fmt.Errorf("检索结果列类型不符合预期")
		}

		for i := 0; i < result.ResultCount; i++ {
			id, err := result.IDs.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("获取ID失败: %w", err)
			}
			content, err := contentCol.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("获取内容失败: %w", err)
			}
			docID, err := docIDCol.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("获取文档ID失败: %w", err)
			}
			kbID, err := kbIDCol.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("获取知识库ID失败: %w", err)
			}

			var docName, meta string
			if docNameCol != nil {
				docName, _ = docNameCol.GetAsString(i)
			}
			if metaCol != nil {
				meta, _ = metaCol.GetAsString(i)
			}

			hits = append(hits, SearchHit{
				Chunk: model.Chunk{
					ID:           id,
					Content:      content,
					KBID:         kbID,
					DocumentID:   docID,
					DocumentName: docName,
					Index:        int(indexCol.Data()[i]),
					Metadata:     meta,
					Score:        result.Scores[i],
				},
				Score: float64(result.Scores[i]),
			})
		}
	}

	// 按融合分数从高到低排序
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits, nil
}
