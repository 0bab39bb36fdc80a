package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates a missing or mismatched bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoCredentials indicates no healthy, unblocked API key is available.
	// Callers must treat this as a hard capacity failure, not retry blindly.
	ErrNoCredentials = errors.New("no API credentials available")

	// ErrCredentialBlocked indicates the provider rejected the key with an
	// organisation/access restriction. The key is permanently excluded.
	ErrCredentialBlocked = errors.New("credential blocked by provider")

	// ErrRateLimited indicates the provider reported a rate-limit error.
	// Transient: the admission window prevents recurrence.
	ErrRateLimited = errors.New("rate limited")

	// ErrDocumentEmpty indicates no text could be extracted from a document.
	// This fails the whole request; without text there is nothing to answer.
	ErrDocumentEmpty = errors.New("no extractable text in document")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
