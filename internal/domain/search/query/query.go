// Package query classifies search queries by shape and derives the blend
// weights used to combine semantic and keyword retrieval.
package query

import (
	"regexp"
	"strings"
)

// Signal is the query-shape classification.
type Signal struct {
	// IsShort is true for queries of at most two whitespace-delimited tokens.
	IsShort bool
	// IsAcronym is true for all-uppercase 2-6 letter queries.
	IsAcronym bool
}

// Weights blends per-source normalized scores. Semantic + Keyword is always 1.0.
type Weights struct {
	Semantic float64
	Keyword  float64
}

var (
	allCapsRe = regexp.MustCompile(`^[A-Z]{2,6}$`)
	// capFirstRe allows mixed case after an uppercase first letter, but
	// Classify additionally requires the whole string to be uppercase, which
	// makes the mixed-case allowance unreachable. Kept as-is: the pair of
	// checks is the contract.
	capFirstRe = regexp.MustCompile(`^[A-Z][A-Za-z]{1,5}$`)
)

// Classify inspects the query text. Pure and total: any input classifies.
func Classify(q string) Signal {
	trimmed := strings.TrimSpace(q)
	return Signal{
		IsShort:   len(strings.Fields(trimmed)) <= 2,
		IsAcronym: isAcronym(trimmed),
	}
}

func isAcronym(trimmed string) bool {
	if allCapsRe.MatchString(trimmed) {
		return true
	}
	return capFirstRe.MatchString(trimmed) && trimmed == strings.ToUpper(trimmed)
}

// BlendWeightsFor derives the per-source weights from the query shape.
// Acronyms favor keyword retrieval heavily; other short queries slightly;
// longer natural-language queries favor semantic retrieval. The acronym rule
// wins over the short rule (an acronym is always short).
func BlendWeightsFor(q string) Weights {
	sig := Classify(q)
	switch {
	case sig.IsAcronym:
		return Weights{Semantic: 0.2, Keyword: 0.8}
	case sig.IsShort:
		return Weights{Semantic: 0.4, Keyword: 0.6}
	default:
		return Weights{Semantic: 0.7, Keyword: 0.3}
	}
}
