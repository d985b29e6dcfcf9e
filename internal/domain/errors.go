package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrIndexNotLoaded signals that the search indexes have not been loaded.
	ErrIndexNotLoaded = errors.New("index not loaded")
	// ErrIndexClosed signals use of an index after Close.
	ErrIndexClosed = errors.New("index closed")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
