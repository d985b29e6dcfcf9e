// Package filter holds the retrieval filters pushed down to both indexes.
package filter

import "github.com/bihub/searchapi/internal/domain/doc"

// Filter restricts retrieval candidates. Zero values mean "no restriction".
type Filter struct {
	// Type restricts by document kind (exact match on the type tag).
	Type string
	// Category restricts by the payload's category field.
	Category string
}

// IsZero reports whether no restrictions are set.
func (f Filter) IsZero() bool { return f.Type == "" && f.Category == "" }

// Matches checks a document against the filter.
func (f Filter) Matches(d doc.Document) bool {
	if f.Type != "" && string(d.Kind()) != f.Type {
		return false
	}
	if f.Category != "" {
		if d.Payload == nil || d.Payload.FilterCategory() != f.Category {
			return false
		}
	}
	return true
}
