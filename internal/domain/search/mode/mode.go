// Package mode names which retrieval sources contributed to a response.
package mode

// Mode reports the retrieval sources visible in the returned result window.
type Mode string

// Mode values.
const (
	// Hybrid means both semantic and keyword sources contributed.
	Hybrid Mode = "hybrid"
	// Semantic means only the vector source contributed.
	Semantic Mode = "semantic"
	// Keyword means only the lexical source contributed (or nothing did).
	Keyword Mode = "keyword"
)
