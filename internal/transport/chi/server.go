// Package chi contains the HTTP handlers mounted on the chi router by the
// composition root in cmd/searchapi.
package chi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bihub/searchapi/internal/domain/doc"
	logpkg "github.com/bihub/searchapi/internal/logger"
	"github.com/bihub/searchapi/internal/domain/search/filter"
	"github.com/bihub/searchapi/internal/domain/search/result"
	healthuc "github.com/bihub/searchapi/internal/usecase/health"
	searchuc "github.com/bihub/searchapi/internal/usecase/search"
)

// Search parameter bounds.
const (
	DefaultTopK = 10
	MaxTopK     = 100
)

// Error response codes.
const (
	CodeValidationFailed = "validation_failed"
	CodeInternalError    = "internal_error"
	CodeBadRequest       = "bad_request"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Searcher is the search use case consumed by the transport.
type Searcher interface {
	Search(ctx context.Context, q string, topK int, f filter.Filter) (searchuc.Response, error)
}

// HealthChecker is the health use case consumed by the transport.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search Searcher
	health HealthChecker
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{search: search, health: health, logger: logger}
}

// SearchDocuments handles GET /search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q := params.Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed,
			"q is required and must not be empty")
		return
	}

	topK := DefaultTopK
	if raw := params.Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed,
				"top_k must be an integer")
			return
		}
		topK = n
	}
	if topK < 1 || topK > MaxTopK {
		writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed,
			"top_k must be between 1 and "+strconv.Itoa(MaxTopK))
		return
	}

	f := filter.Filter{
		Type:     params.Get("type"),
		Category: params.Get("category"),
	}

	// The logging middleware scopes a logger to this request, so error
	// lines here carry its request id.
	log := logpkg.FromContext(r.Context(), s.logger)

	resp, err := s.search.Search(r.Context(), q, topK, f)
	if err != nil {
		log.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
		return
	}

	items := make([]map[string]any, 0, len(resp.Results))
	for _, m := range resp.Results {
		item, err := resultItem(m)
		if err != nil {
			log.Error("serialize result failed",
				zap.String("doc_id", m.ID()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
			return
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":      q,
		"total":      len(items),
		"results":    items,
		"searchMode": string(resp.Mode),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":         string(report.Status),
		"index_loaded":   report.IndexLoaded,
		"document_count": report.DocumentCount,
	})
}

// resultItem flattens the active payload variant's fields and annotates the
// blend outcome. Glossary terms and FAQs get a title alias so clients can
// render every kind uniformly.
func resultItem(m result.Merged) (map[string]any, error) {
	raw, err := json.Marshal(m.Doc())
	if err != nil {
		return nil, err
	}
	var item map[string]any
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}

	switch p := m.Doc().Payload.(type) {
	case doc.GlossaryTerm:
		item["title"] = p.Term
	case doc.FAQ:
		item["title"] = p.Question
	}

	item["score"] = round4(m.BlendedScore())
	item["matchReason"] = m.MatchReason()
	return item, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
