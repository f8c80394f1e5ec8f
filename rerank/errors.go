package rerank

import "errors"

var (
	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidTimeout is returned when a non-positive timeout is configured.
	ErrInvalidTimeout = errors.New("timeout must be positive")
)
