package health

import "context"

// DocumentCounter reports how many documents are loaded and servable.
type DocumentCounter interface {
	Count() int
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
