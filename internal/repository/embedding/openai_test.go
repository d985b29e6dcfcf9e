package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bihub/searchapi/internal/metrics"
)

func TestOpenAIEmbedReportsTokenUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
			"model": "text-embedding-3-small",
			"usage": map[string]int{"prompt_tokens": 7, "total_tokens": 7},
		})
	}))
	defer srv.Close()

	e := NewOpenAI(OpenAIConfig{
		APIKey:   "test-key",
		BaseURL:  srv.URL + "/v1",
		Model:    "text-embedding-3-small",
		Provider: "stub",
	})

	tokens := metrics.EmbeddingTokensTotal.WithLabelValues("stub", "text-embedding-3-small", "total")
	before := testutil.ToFloat64(tokens)

	res, err := e.Embed(context.Background(), "donor pipeline")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != 3 {
		t.Fatalf("embedding length = %d, want 3", len(res.Embedding))
	}
	if res.PromptTokens != 7 || res.TotalTokens != 7 {
		t.Errorf("usage = (%d, %d), want (7, 7)", res.PromptTokens, res.TotalTokens)
	}

	if diff := testutil.ToFloat64(tokens) - before; diff != 7 {
		t.Errorf("token counter advanced by %v, want 7", diff)
	}
}
