// Package version carries build-time identification, set via -ldflags.
package version

// Build identification, overridden at link time.
var (
	Version = "dev"
	Commit  = "unknown"
)
