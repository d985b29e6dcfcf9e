package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/bihub/searchapi/internal/domain"
)

// Token and character n-gram contributions to the hashed vector.
const (
	staticTokenWeight = 0.7
	staticNgramWeight = 0.3
	staticNgramSize   = 3
)

var staticTokenRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

// StaticEmbedder produces deterministic hash-based embeddings with no
// network or model download. Quality is far below a real model, but shared
// tokens and character n-grams still land related texts near each other,
// which is enough for local development and tests.
type StaticEmbedder struct {
	dims int
}

// NewStatic creates a static embedder with the given output dimension.
func NewStatic(dims int) *StaticEmbedder {
	return &StaticEmbedder{dims: dims}
}

// Embed implements domain.Embedder. The result is L2-normalized; empty input
// yields the zero vector.
func (e *StaticEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vector := make([]float32, e.dims)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.EmbeddingResult{Embedding: vector}, nil
	}

	tokens := staticTokens(trimmed)
	for _, tok := range tokens {
		vector[hashToIndex(tok, e.dims)] += staticTokenWeight
	}
	for _, gram := range staticNgrams(strings.ToLower(trimmed), staticNgramSize) {
		vector[hashToIndex(gram, e.dims)] += staticNgramWeight
	}

	normalizeL2(vector)
	return domain.EmbeddingResult{Embedding: vector}, nil
}

// HealthCheck implements domain.HealthChecker. A static embedder has no
// external dependency to probe.
func (e *StaticEmbedder) HealthCheck(context.Context) error { return nil }

func staticTokens(text string) []string {
	words := staticTokenRe.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, strings.ToLower(w))
	}
	return tokens
}

func staticNgrams(text string, n int) []string {
	runes := []rune(text)
	if len(runes) < n {
		return nil
	}
	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}

func hashToIndex(s string, dims int) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() % uint32(dims))
}

func normalizeL2(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
}
