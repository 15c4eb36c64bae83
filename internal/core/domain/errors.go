package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a document type outside the .txt/.pdf allow-list.
	// Wrapped errors name the offending extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyExtraction indicates a document yielded no usable text.
	// The user can fix this by uploading a different file.
	ErrEmptyExtraction = errors.New("no text could be extracted")

	// ErrNoDocuments indicates a question was asked before anything was indexed.
	ErrNoDocuments = errors.New("no documents indexed yet; upload a TXT/PDF first")

	// ErrEmbeddingUnavailable indicates the embedding service failed or is not configured.
	// The core does not retry.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the chat-completion service failed or is not configured.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	// This is a programming or configuration error and must not be swallowed.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited indicates a request rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
