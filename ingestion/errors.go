package ingestion

import "errors"

var (
	// ErrRepositoryRequired is returned when an utterance repository is not provided.
	ErrRepositoryRequired = errors.New("utterance repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidMaxAttempts is returned when a retry is configured with
	// a non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrEmbeddingFailed is returned when embedding generation fails for a batch.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)
