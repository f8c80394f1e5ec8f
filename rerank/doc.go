// Package rerank provides the optional second-stage re-ordering of
// retrieved candidates with a cross-encoder relevance score.
//
// The stage degrades gracefully: a scoring failure or timeout returns the
// pre-rerank ordering with the Degraded flag set instead of failing the
// query.
package rerank
