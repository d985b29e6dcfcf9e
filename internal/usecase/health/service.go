package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the service cannot serve searches.
	Unhealthy Status = "error"
)

// Report aggregates readiness facts for the health endpoint.
type Report struct {
	Status        Status
	IndexLoaded   bool
	DocumentCount int
}

// Service coordinates health checks.
type Service struct {
	docs      DocumentCounter
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(docs DocumentCounter, embedding EmbeddingChecker) *Service {
	return &Service{docs: docs, embedding: embedding}
}

// Check reports whether the service can serve searches. An empty corpus is
// Unhealthy, a failing embedding provider Degraded since keyword search
// still works.
func (s *Service) Check(ctx context.Context) Report {
	count := 0
	if s.docs != nil {
		count = s.docs.Count()
	}

	report := Report{
		Status:        Healthy,
		IndexLoaded:   count > 0,
		DocumentCount: count,
	}
	if count == 0 {
		report.Status = Unhealthy
		return report
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			report.Status = Degraded
		}
	}
	return report
}
