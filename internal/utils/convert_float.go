package utils

// ConvertFloat64ToFloat32Embeddings 批量转换向量精度
func ConvertFloat64ToFloat32Embeddings(embeddings [][]float64) [][]float32 {
	float32Embeddings := make([][]float32, len(embeddings))
	for i, vec64 := range embeddings {
		float32Embeddings[i] = ConvertFloat64ToFloat32Embedding(vec64)
	}
	return float32Embeddings
}

// ConvertFloat64ToFloat32Embedding 转换单条向量精度
func ConvertFloat64ToFloat32Embedding(embedding []float64) []float32 {
	float32Embedding := make([]float32, len(embedding))
	for i, v := range embedding {
		float32Embedding[i] = float32(v)
	}
	return float32Embedding
}
