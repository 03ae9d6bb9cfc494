package splitter

import (
	"context"
	"strings"
	"testing"

	"kb-engine/config"
	"kb-engine/internal/model"

	"github.com/stretchr/testify/require"
)

func testDefaults() config.RAGConfig {
	return config.RAGConfig{ChunkSize: 100, OverlapSize: 20, MaxChunkSize: 2048}
}

func TestSegmenter_PlainTextOrdinals(t *testing.T) {
	s := NewSegmenter(testDefaults())

	text := strings.Repeat("知识库系统将文档切分为文本块。\n\n", 40)
	segs, err := s.Split(context.Background(), []byte(text), "text/plain", model.ParserConfig{})
	require.NoError(t, err)
	require.NotEmpty(t, segs)

	// 序号连续且与顺序一致
	for i, seg := range segs {
		require.Equal(t, i, seg.Index)
		require.NotEmpty(t, seg.Content)
	}
}

func TestSegmenter_Deterministic(t *testing.T) {
	s := NewSegmenter(testDefaults())
	raw := []byte(strings.Repeat("retry must reproduce the same chunk set. ", 60))

	first, err := s.Split(context.Background(), raw, "text/plain", model.ParserConfig{ChunkSize: 120, OverlapSize: 10})
	require.NoError(t, err)
	second, err := s.Split(context.Background(), raw, "text/plain", model.ParserConfig{ChunkSize: 120, OverlapSize: 10})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].Content, second[i].Content)
		require.Equal(t, first[i].Index, second[i].Index)
	}
}

func TestSegmenter_EmptyContent(t *testing.T) {
	s := NewSegmenter(testDefaults())
	_, err := s.Split(context.Background(), []byte("   \n\t  "), "text/plain", model.ParserConfig{})
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestSegmenter_UnsupportedType(t *testing.T) {
	s := NewSegmenter(testDefaults())
	_, err := s.Split(context.Background(), []byte{0x1, 0x2}, "image/png", model.ParserConfig{})
	require.ErrorIs(t, err, ErrUnparsable)
}

func TestSegmenter_MaxChunkSizeBound(t *testing.T) {
	defaults := testDefaults()
	defaults.MaxChunkSize = 50
	s := NewSegmenter(defaults)

	// 无分隔符的长文本，递归分块器可能产出超长块，靠硬上限兜底
	raw := []byte(strings.Repeat("x", 5000))
	segs, err := s.Split(context.Background(), raw, "text/plain", model.ParserConfig{ChunkSize: 10000})
	require.NoError(t, err)
	for _, seg := range segs {
		require.LessOrEqual(t, len([]rune(seg.Content)), 50)
	}
}
