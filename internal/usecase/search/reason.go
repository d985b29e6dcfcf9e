package search

import (
	"strings"

	"github.com/bihub/searchapi/internal/domain/search/query"
)

// Tier thresholds for the match explanation. The table is fixed: weights are
// accepted for interface symmetry but do not shift the tiers.
const (
	strongTier  = 0.7
	goodTier    = 0.5
	partialTier = 0.3
)

// matchReason derives the human-readable explanation from the per-source
// contributions. Phrases are joined with " + ", semantic before keyword. When
// neither score clears the partial tier, a source-named generic phrase is
// produced for each present source; with no scores at all the literal
// fallback is returned.
func matchReason(semantic, keyword *float64, _ query.Weights) string {
	var reasons []string

	if semantic != nil && *semantic > partialTier {
		switch {
		case *semantic > strongTier:
			reasons = append(reasons, "strong semantic match")
		case *semantic > goodTier:
			reasons = append(reasons, "good semantic match")
		default:
			reasons = append(reasons, "partial semantic match")
		}
	}

	if keyword != nil && *keyword > partialTier {
		switch {
		case *keyword > strongTier:
			reasons = append(reasons, "exact keyword match")
		case *keyword > goodTier:
			reasons = append(reasons, "keyword match")
		default:
			reasons = append(reasons, "partial keyword match")
		}
	}

	if len(reasons) == 0 {
		if semantic != nil {
			reasons = append(reasons, "semantic similarity")
		}
		if keyword != nil {
			reasons = append(reasons, "keyword relevance")
		}
	}

	if len(reasons) == 0 {
		return "relevance match"
	}

	return strings.Join(reasons, " + ")
}
