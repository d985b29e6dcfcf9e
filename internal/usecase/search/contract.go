package search

import (
	"context"

	"github.com/bihub/searchapi/internal/domain"
	"github.com/bihub/searchapi/internal/domain/search/filter"
	"github.com/bihub/searchapi/internal/domain/search/result"
)

// VectorIndex is the dense retrieval collaborator: nearest-neighbor search
// over normalized embedding vectors.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, k int, f filter.Filter) ([]result.Scored, error)
}

// KeywordIndex is the sparse retrieval collaborator: ranked full-text search.
// Implementations must return raw scores where higher is better, inverting
// their native metric if needed.
type KeywordIndex interface {
	Search(ctx context.Context, queryText string, k int, f filter.Filter) ([]result.Scored, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
