// Package reembed regenerates stored embedding vectors in batches, with
// progress reporting and retry on transient failures. Used after changing
// the embedding model.
package reembed
