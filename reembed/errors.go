package reembed

import "errors"

var (
	// ErrRepositoryRequired is returned when an utterance repository is not provided.
	ErrRepositoryRequired = errors.New("utterance repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
