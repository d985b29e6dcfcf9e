// Package doc models the corpus document types as a tagged union: four known
// kinds (report, training video, glossary term, FAQ) plus an open Other
// variant for records the normalizer does not recognize.
package doc

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags the document payload variant.
type Kind string

// Known document kinds.
const (
	KindReport        Kind = "report"
	KindTrainingVideo Kind = "training_video"
	KindGlossary      Kind = "glossary"
	KindFAQ           Kind = "faq"
	KindOther         Kind = "other"
)

// Payload is the type-specific metadata of a document.
type Payload interface {
	Kind() Kind
	// FilterCategory returns the filterable category, empty when the kind has none.
	FilterCategory() string
	// EmbedText is the canonical text representation used for dense embedding.
	EmbedText() string
	// IndexText is the text indexed for keyword search.
	IndexText() string
}

// Document is one corpus entry: a unique identity plus its typed payload.
type Document struct {
	ID      string
	Payload Payload
}

// Kind returns the payload kind, KindOther for a nil payload.
func (d Document) Kind() Kind {
	if d.Payload == nil {
		return KindOther
	}
	return d.Payload.Kind()
}

// Report is a BI report or dashboard.
type Report struct {
	Title       string
	Description string
	URL         string
	Category    string
	Platform    string
	Tags        []string
}

// Kind implements Payload.
func (Report) Kind() Kind { return KindReport }

// FilterCategory implements Payload.
func (r Report) FilterCategory() string { return r.Category }

// EmbedText implements Payload.
func (r Report) EmbedText() string {
	parts := []string{
		"Report: " + r.Title,
		r.Description,
		"Category: " + r.Category,
		"Platform: " + r.Platform,
	}
	if len(r.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(r.Tags, ", "))
	}
	return joinNonEmpty(parts)
}

// IndexText implements Payload.
func (r Report) IndexText() string {
	return joinNonEmpty([]string{
		r.Title, r.Description, r.Category, r.Platform, strings.Join(r.Tags, " "),
	})
}

// TrainingVideo is a recorded training session.
type TrainingVideo struct {
	Title       string
	Description string
	Category    string
}

// Kind implements Payload.
func (TrainingVideo) Kind() Kind { return KindTrainingVideo }

// FilterCategory implements Payload.
func (v TrainingVideo) FilterCategory() string { return v.Category }

// EmbedText implements Payload.
func (v TrainingVideo) EmbedText() string {
	return joinNonEmpty([]string{"Training Video: " + v.Title, v.Description})
}

// IndexText implements Payload.
func (v TrainingVideo) IndexText() string {
	return joinNonEmpty([]string{v.Title, v.Description})
}

// GlossaryTerm is a business-glossary entry.
type GlossaryTerm struct {
	Term       string
	Definition string
}

// Kind implements Payload.
func (GlossaryTerm) Kind() Kind { return KindGlossary }

// FilterCategory implements Payload.
func (GlossaryTerm) FilterCategory() string { return "" }

// EmbedText implements Payload.
func (g GlossaryTerm) EmbedText() string {
	return joinNonEmpty([]string{"Glossary Term: " + g.Term, "Definition: " + g.Definition})
}

// IndexText implements Payload.
func (g GlossaryTerm) IndexText() string {
	return joinNonEmpty([]string{g.Term, g.Definition})
}

// FAQ is a frequently-asked question with its answer.
type FAQ struct {
	Question string
	Answer   string
	URL      string
	Category string
	Tags     []string
}

// Kind implements Payload.
func (FAQ) Kind() Kind { return KindFAQ }

// FilterCategory implements Payload.
func (f FAQ) FilterCategory() string { return f.Category }

// EmbedText implements Payload.
func (f FAQ) EmbedText() string {
	return joinNonEmpty([]string{"FAQ: " + f.Question, "Answer: " + f.Answer})
}

// IndexText implements Payload.
func (f FAQ) IndexText() string {
	return joinNonEmpty([]string{
		f.Question, f.Answer, f.Category, strings.Join(f.Tags, " "),
	})
}

// Other carries the fields of an unrecognized document type as-is.
type Other struct {
	Type   string
	Fields map[string]any
}

// Kind implements Payload.
func (Other) Kind() Kind { return KindOther }

// FilterCategory implements Payload.
func (o Other) FilterCategory() string {
	if c, ok := o.Fields["category"].(string); ok {
		return c
	}
	return ""
}

// EmbedText implements Payload.
func (o Other) EmbedText() string { return o.flatten() }

// IndexText implements Payload.
func (o Other) IndexText() string { return o.flatten() }

// flatten concatenates string-valued fields in key order for a stable result.
func (o Other) flatten() string {
	keys := make([]string, 0, len(o.Fields))
	for k := range o.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := o.Fields[k].(type) {
		case string:
			parts = append(parts, v)
		case []any:
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
		}
	}
	return joinNonEmpty(parts)
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
