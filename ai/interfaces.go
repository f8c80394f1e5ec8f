package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use and deterministic
// for a given model version.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// RelevanceScorer produces a fine-grained relevance score for each
// (query, candidate text) pair, cross-encoder style. Used by the optional
// re-ranking stage. Implementations must be thread-safe.
type RelevanceScorer interface {
	// ScorePairs scores every candidate text against the query.
	// The returned slice is aligned with the input texts. Scores are
	// higher-is-more-relevant; implementations should keep them in [0,1].
	ScorePairs(ctx context.Context, query string, texts []string) ([]float32, error)
}

// Explainer produces a natural-language summary of why the given passages
// answer the query. Never required for ranking correctness.
type Explainer interface {
	Explain(ctx context.Context, query string, passages []string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// RelevanceScorer returns the cross-encoder scoring service.
	RelevanceScorer() RelevanceScorer

	// Explainer returns the result explanation service.
	Explainer() Explainer

	// Close releases resources held by the provider and its services.
	Close() error
}
