package vector

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// EncodeSparse 将文本编码为稀疏向量，用于词法召回
// 词项经FNV哈希映射到固定位置，权重为 1+ln(tf)；
// 相同输入产生相同输出，重试可安全重建
func EncodeSparse(text string) (entity.SparseEmbedding, error) {
	tf := make(map[uint32]float32)
	for _, term := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(term))
		tf[h.Sum32()]++
	}

	if len(tf) == 0 {
		// 无有效词项时写入一个epsilon元素，保持行对齐
		return entity.NewSliceSparseEmbedding([]uint32{0}, []float32{1e-9})
	}

	positions := make([]uint32, 0, len(tf))
	for pos := range tf {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	values := make([]float32, len(positions))
	for i, pos := range positions {
		values[i] = 1 + float32(math.Log(float64(tf[pos])))
	}
	return entity.NewSliceSparseEmbedding(positions, values)
}

// tokenize 小写化并按非字母数字切分；中文等CJK文本按单字切分
func tokenize(text string) []string {
	var terms []string
	var sb strings.Builder

	flush := func() {
		if sb.Len() > 0 {
			terms = append(terms, sb.String())
			sb.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			terms = append(terms, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return terms
}
