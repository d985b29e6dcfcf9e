// Package keyword implements the lexical retrieval collaborator. Two
// interchangeable drivers are provided: SQLite FTS5 (the default, a single
// file on disk) and bleve (a pure-Go inverted index). Both emit raw scores
// in the universal higher-is-better convention.
package keyword

import (
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^\w\s\-']`)

// sanitize strips characters with FTS operator meaning and collapses
// whitespace, so user input can never be parsed as query syntax.
func sanitize(q string) string {
	cleaned := unsafeChars.ReplaceAllString(q, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// tokenize returns the sanitized query terms.
func tokenize(q string) []string {
	return strings.Fields(sanitize(q))
}

// ftsMatchQuery builds an FTS5 MATCH expression from free-form user input.
// Terms of two or more characters match as prefixes so partial words still
// hit, joined with OR so any term suffices; BM25 ranking rewards documents
// matching more of them. A single-term query also tries the exact token,
// which scores exact matches above bare prefix hits. Shorter tokens in a
// multi-term query are noise (articles, stray letters) and are dropped; if
// nothing survives, the bare sanitized string is the query.
func ftsMatchQuery(q string) string {
	tokens := tokenize(q)
	if len(tokens) == 0 {
		return ""
	}

	if len(tokens) == 1 {
		tok := tokens[0]
		return `"` + tok + `"* OR ` + tok
	}

	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) >= 2 {
			parts = append(parts, `"`+tok+`"*`)
		}
	}
	if len(parts) == 0 {
		return strings.Join(tokens, " ")
	}
	return strings.Join(parts, " OR ")
}
