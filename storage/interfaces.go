package storage

import (
	"context"

	"github.com/vocalia/anamnesis/core"
)

// Filter restricts which utterances a read or similarity scan considers.
// The zero value applies no restriction.
type Filter struct {
	// InterviewIds is an allow-list of interviews. Empty means all.
	// Unknown interview ids simply match nothing; they are not an error.
	InterviewIds []string
	// Speaker restricts to a single speaker role.
	Speaker core.SpeakerFilter
}

// Matches reports whether the utterance passes the filter.
func (f *Filter) Matches(u *core.Utterance) bool {
	if !f.Speaker.Matches(u.Speaker) {
		return false
	}
	if len(f.InterviewIds) == 0 {
		return true
	}
	for _, id := range f.InterviewIds {
		if id == u.InterviewId {
			return true
		}
	}
	return false
}

// SimilarityMatch is one hit from a vector similarity scan.
type SimilarityMatch struct {
	Utterance *core.Utterance
	Score     float32
}

// Stats summarizes store contents.
type Stats struct {
	Interviews int
	Utterances int
	Embedded   int // utterances that carry an embedding vector
}

// UtteranceRepository provides operations for managing utterances.
// Implementations must be thread-safe and support concurrent access.
type UtteranceRepository interface {
	// UpsertUtterances validates and writes utterances. The utterance
	// identity is its dedup key (interview, speaker, start, end); writing
	// an existing identity overwrites text, vector, and metadata, which
	// makes re-ingestion idempotent. Invalid items are rejected
	// individually with a reason; valid items in the same batch still
	// commit. An existing record's vector is preserved when the incoming
	// text is unchanged and no new vector is supplied.
	UpsertUtterances(ctx context.Context, utterances ...*core.Utterance) (*core.WriteResult, error)

	// GetUtterance retrieves a single utterance by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetUtterance(ctx context.Context, id core.ID) (*core.Utterance, error)

	// GetUtterances retrieves multiple utterances by their IDs.
	// Returns only the utterances that exist (no error for missing ones).
	GetUtterances(ctx context.Context, ids ...core.ID) ([]*core.Utterance, error)

	// ListUtterances returns the utterances passing the filter, ordered by
	// (interview id, start time). Unknown interview ids yield no results.
	ListUtterances(ctx context.Context, filter Filter) ([]*core.Utterance, error)

	// DeleteInterview removes all utterances of an interview and returns
	// how many were deleted.
	DeleteInterview(ctx context.Context, interviewId string) (int, error)

	// FindSimilar scans utterances passing the filter and returns those
	// with cosine similarity >= minSimilarity against the query vector,
	// up to limit, ordered by score descending (ties: earlier start time,
	// then ID). Utterances without embeddings are skipped.
	FindSimilar(ctx context.Context, vector []float32, filter Filter, minSimilarity float32, limit int) ([]*SimilarityMatch, error)

	// Stats returns interview and utterance counts.
	Stats(ctx context.Context) (*Stats, error)

	// WithTransaction executes fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}
