// Package ai defines the contracts for external AI collaborators: text
// embedding, cross-encoder relevance scoring, and result explanation.
//
// The core retrieval logic depends only on the interfaces in this package.
// Concrete implementations live in subpackages: ai/openai talks to
// OpenAI-compatible services, ai/mock provides deterministic test doubles.
package ai
