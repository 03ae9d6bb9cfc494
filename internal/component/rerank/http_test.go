package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"kb-engine/config"

	"github.com/stretchr/testify/require"
)

func TestHTTPReranker_ScoresByOriginalIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/rerank", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "退款政策", req.Query)
		require.Len(t, req.Documents, 3)

		// 服务端按相关性降序返回，index指向原始顺序
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"index": 2, "relevance_score": 0.92},
				{"index": 0, "relevance_score": 0.31},
				{"index": 1, "relevance_score": 0.05},
			},
		})
	}))
	defer srv.Close()

	p := NewHTTPReranker(config.RerankConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-reranker",
	})

	scores, err := p.Rerank(context.Background(), "退款政策", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, []float64{0.31, 0.05, 0.92}, scores)
}

func TestHTTPReranker_EmptyDocuments(t *testing.T) {
	p := NewHTTPReranker(config.RerankConfig{BaseURL: "http://127.0.0.1:1"})
	scores, err := p.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Nil(t, scores)
}

func TestHTTPReranker_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPReranker(config.RerankConfig{BaseURL: srv.URL})
	_, err := p.Rerank(context.Background(), "q", []string{"doc"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
