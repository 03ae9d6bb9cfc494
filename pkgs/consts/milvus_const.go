package consts

// 字段名称常量定义
const (
	// FieldNameID ID字段名
	FieldNameID = "id"
	// FieldNameContent 内容字段名
	FieldNameContent = "content"
	// FieldNameDocumentID 文档ID字段名
	FieldNameDocumentID = "document_id"
	// FieldNameDocumentName 文档名称字段名
	FieldNameDocumentName = "document_name"
	// FieldNameKBID 知识库ID字段名
	FieldNameKBID = "kb_id"
	// FieldNameChunkIndex 块序号字段名
	FieldNameChunkIndex = "chunk_index"
	// FieldNameVector 稠密向量字段名
	FieldNameVector = "vector"
	// FieldNameSparse 稀疏向量字段名（词法召回）
	FieldNameSparse = "sparse_vector"
	// FieldNameMetadata meta信息
	FieldNameMetadata = "metadata"
)

// 查询相关字段
var (
	// SearchFields 搜索结果返回的字段
	SearchFields = []string{
		FieldNameID,
		FieldNameContent,
		FieldNameDocumentID,
		FieldNameDocumentName,
		FieldNameKBID,
		FieldNameChunkIndex,
		FieldNameMetadata,
	}
)
