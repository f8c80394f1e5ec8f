// Package ingestion writes reconciled utterances to storage with their
// vector embeddings attached.
//
// The pipeline embeds lazily: an utterance whose text is already stored
// with a vector keeps the stored vector, so re-ingesting a transcript is
// cheap and idempotent. Transient storage failures are retried with
// exponential backoff before the batch is failed.
package ingestion
