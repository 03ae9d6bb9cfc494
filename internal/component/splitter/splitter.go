package splitter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"kb-engine/config"
	"kb-engine/internal/model"

	"code.sajari.com/docconv/v2"
	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/schema"
)

var (
	// ErrEmptyContent 文档无可提取文本（数据错误，不可重试）
	ErrEmptyContent = errors.New("文档解析结果为空")
	// ErrUnparsable 文档解析失败（数据错误，不可重试）
	ErrUnparsable = errors.New("文档无法解析")
)

// Segment 分块结果，顺序与原文一致
type Segment struct {
	Content  string
	Index    int
	Metadata map[string]interface{}
}

// Segmenter 内容分块器
// 约定：相同输入产生相同输出；要么返回完整有序序列，要么返回错误；
// 单块长度不超过配置的硬上限
type Segmenter interface {
	Split(ctx context.Context, raw []byte, mimeType string, cfg model.ParserConfig) ([]Segment, error)
}

// einoSegmenter 基于docconv文本提取 + eino递归分块器
type einoSegmenter struct {
	defaults config.RAGConfig
}

// NewSegmenter 创建分块器
func NewSegmenter(defaults config.RAGConfig) Segmenter {
	return &einoSegmenter{defaults: defaults}
}

func (s *einoSegmenter) Split(ctx context.Context, raw []byte, mimeType string, cfg model.ParserConfig) ([]Segment, error) {
	text, err := s.extractText(raw, mimeType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.defaults.ChunkSize
	}
	overlap := cfg.OverlapSize
	if overlap < 0 || overlap >= chunkSize {
		overlap = s.defaults.OverlapSize
	}

	sp, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   chunkSize,
		OverlapSize: overlap,
	})
	if err != nil {
		return nil, fmt.Errorf("加载分块器失败: %w", err)
	}

	docs, err := sp.Transform(ctx, []*schema.Document{{Content: text}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	segments := make([]Segment, 0, len(docs))
	for i, d := range docs {
		content := strings.TrimSpace(d.Content)
		if content == "" {
			continue
		}
		// 硬上限兜底，流水线不再做二次切分
		content = truncateRunes(content, s.defaults.MaxChunkSize)
		segments = append(segments, Segment{
			Content: content,
			Index:   i,
			Metadata: map[string]interface{}{
				"position": i,
			},
		})
	}
	if len(segments) == 0 {
		return nil, ErrEmptyContent
	}
	// 重新编号，保证序号连续稳定
	for i := range segments {
		segments[i].Index = i
		segments[i].Metadata["position"] = i
	}
	return segments, nil
}

// extractText 按MIME类型提取纯文本
func (s *einoSegmenter) extractText(raw []byte, mimeType string) (string, error) {
	switch {
	case strings.Contains(mimeType, "pdf"):
		text, _, err := docconv.ConvertPDF(bytes.NewReader(raw))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
		}
		return text, nil
	case strings.Contains(mimeType, "officedocument.wordprocessingml"), strings.HasSuffix(mimeType, "msword"):
		text, _, err := docconv.ConvertDocx(bytes.NewReader(raw))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnparsable, err)
		}
		return text, nil
	case strings.HasPrefix(mimeType, "text/"), mimeType == "", mimeType == "application/octet-stream":
		// txt/markdown等直接按UTF-8文本处理
		return string(raw), nil
	default:
		return "", fmt.Errorf("%w: 不支持的文档类型 %s", ErrUnparsable, mimeType)
	}
}

// truncateRunes 按rune截断，避免截断多字节字符
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
