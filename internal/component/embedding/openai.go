package embedding

import (
	"context"
	"fmt"
	"time"

	"kb-engine/internal/model"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
)

func init() {
	register(ProviderOpenAI, &openaiEmbedder{})
}

type OpenAIEmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   *time.Duration
	Dimension *int
}

type openaiEmbedder struct {
	conf     *OpenAIEmbeddingConfig
	embedder *openai.Embedder
}

func (o *openaiEmbedder) New(ctx context.Context, cfg *model.Model, opts ...EmbeddingOption) (EmbeddingService, error) {
	options := &EmbeddingOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Timeout == nil {
		timeout := 30 * time.Second
		options.Timeout = &timeout
	}

	config := &OpenAIEmbeddingConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.ModelName,
		Timeout:   options.Timeout,
		Dimension: &cfg.Dimension,
	}

	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:     config.APIKey,
		BaseURL:    config.BaseURL,
		Model:      config.Model,
		Timeout:    *options.Timeout,
		Dimensions: config.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("创建OpenAI嵌入服务失败: %w", err)
	}
	return &openaiEmbedder{
		conf:     config,
		embedder: embedder,
	}, nil
}

func (o *openaiEmbedder) EmbedStrings(ctx context.Context, texts []string) ([][]float64, error) {
	return o.embedder.EmbedStrings(ctx, texts)
}

func (o *openaiEmbedder) GetDimension() int {
	return *o.conf.Dimension
}
