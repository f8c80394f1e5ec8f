package badger

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vocalia/anamnesis/core"
	"github.com/vocalia/anamnesis/storage"
)

// UtteranceRepository implements storage.UtteranceRepository for BadgerDB.
type UtteranceRepository struct {
	backend *Backend
}

var _ storage.UtteranceRepository = (*UtteranceRepository)(nil)

// NewUtteranceRepository creates a new UtteranceRepository.
func NewUtteranceRepository(backend *Backend) (*UtteranceRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &UtteranceRepository{backend: backend}, nil
}

// Close releases repository resources.
func (r *UtteranceRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *UtteranceRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertUtterances validates and writes utterances in a single transaction.
// Invalid items are rejected individually; valid items still commit.
func (r *UtteranceRepository) UpsertUtterances(ctx context.Context, utterances ...*core.Utterance) (*core.WriteResult, error) {
	result := &core.WriteResult{}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, u := range utterances {
			if err := core.ValidateUtterance(u); err != nil {
				result.Rejected = append(result.Rejected, core.Rejection{Utterance: u, Reason: err})
				continue
			}

			u.AssignId()

			old, err := r.readUtterance(tx, makeUtteranceKey(u.Id))
			if err != nil {
				return err
			}

			if old == nil {
				if u.CreatedAt.IsZero() {
					// Truncate to the precision the serializer keeps.
					u.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
				}
				result.Inserted++
			} else {
				// Identity fields match by construction; this is an
				// overwrite of the same logical utterance.
				u.CreatedAt = old.CreatedAt
				if len(u.Vector) == 0 && old.Text == u.Text {
					u.Vector = old.Vector
				}
				result.Updated++
			}

			if err := tx.Set(makeUtteranceKey(u.Id), storage.MarshalUtterance(u)); err != nil {
				return err
			}
			indexKey := makeInterviewKey(u.InterviewId, u.StartTime, u.Id)
			if err := tx.Set(indexKey, storage.MarshalID(u.Id)); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
		return nil
	}, true)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetUtterance retrieves a single utterance by ID.
func (r *UtteranceRepository) GetUtterance(ctx context.Context, id core.ID) (*core.Utterance, error) {
	var result *core.Utterance
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readUtterance(tx, makeUtteranceKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetUtterances retrieves multiple utterances by their IDs.
// Missing IDs are skipped without error.
func (r *UtteranceRepository) GetUtterances(ctx context.Context, ids ...core.ID) ([]*core.Utterance, error) {
	var result []*core.Utterance
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			u, err := r.readUtterance(tx, makeUtteranceKey(id))
			if err != nil {
				return err
			}
			if u != nil {
				result = append(result, u)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListUtterances returns utterances passing the filter, ordered by
// (interview id, start time).
func (r *UtteranceRepository) ListUtterances(ctx context.Context, filter storage.Filter) ([]*core.Utterance, error) {
	var results []*core.Utterance

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefixes := [][]byte{[]byte(uttInterviewPrefix + ":")}
		if len(filter.InterviewIds) > 0 {
			ids := slices.Clone(filter.InterviewIds)
			slices.Sort(ids)
			ids = slices.Compact(ids)
			prefixes = prefixes[:0]
			for _, id := range ids {
				prefixes = append(prefixes, makePartialInterviewKey(id))
			}
		}

		for _, prefix := range prefixes {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			iter := tx.NewIterator(opts)

			for iter.Rewind(); iter.Valid(); iter.Next() {
				var recordId core.ID
				if err := iter.Item().Value(func(val []byte) error {
					var err error
					recordId, err = storage.UnmarshalID(val)
					return err
				}); err != nil {
					iter.Close()
					return err
				}

				u, err := r.readUtterance(tx, makeUtteranceKey(recordId))
				if err != nil {
					iter.Close()
					return err
				}
				if u != nil && filter.Speaker.Matches(u.Speaker) {
					results = append(results, u)
				}
			}
			iter.Close()
		}
		return nil
	}, false)

	return results, err
}

// DeleteInterview removes all utterances of an interview.
func (r *UtteranceRepository) DeleteInterview(ctx context.Context, interviewId string) (int, error) {
	deleted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialInterviewKey(interviewId)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		// Collect keys first; deleting while iterating is unsafe.
		var indexKeys [][]byte
		var recordIds []core.ID

		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
			var recordId core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				recordId, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}
			recordIds = append(recordIds, recordId)
		}
		iter.Close()

		for i, key := range indexKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
			if err := tx.Delete(makeUtteranceKey(recordIds[i])); err != nil {
				return err
			}
			deleted++
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
		return nil
	}, true)

	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// FindSimilar scans all utterances passing the filter and ranks them by
// cosine similarity against the query vector.
func (r *UtteranceRepository) FindSimilar(ctx context.Context, vector []float32, filter storage.Filter, minSimilarity float32, limit int) ([]*storage.SimilarityMatch, error) {
	var results []*storage.SimilarityMatch

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(uttRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var u *core.Utterance
			err := iter.Item().Value(func(val []byte) error {
				var err error
				u, err = storage.UnmarshalUtterance(val)
				return err
			})
			if err != nil {
				return err
			}
			if u == nil || len(u.Vector) == 0 {
				continue
			}
			if !filter.Matches(u) {
				continue
			}

			similarity := cosineSimilarity(vector, u.Vector)
			if similarity >= minSimilarity {
				results = append(results, &storage.SimilarityMatch{
					Utterance: u,
					Score:     similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *storage.SimilarityMatch) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.Utterance.StartTime != b.Utterance.StartTime {
			if a.Utterance.StartTime < b.Utterance.StartTime {
				return -1
			}
			return 1
		}
		if a.Utterance.Id < b.Utterance.Id {
			return -1
		}
		if a.Utterance.Id > b.Utterance.Id {
			return 1
		}
		return 0
	})

	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Stats counts interviews and utterances in a single scan.
func (r *UtteranceRepository) Stats(ctx context.Context) (*storage.Stats, error) {
	stats := &storage.Stats{}
	interviews := make(map[string]bool)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(uttRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var u *core.Utterance
			err := iter.Item().Value(func(val []byte) error {
				var err error
				u, err = storage.UnmarshalUtterance(val)
				return err
			})
			if err != nil {
				return err
			}
			if u == nil {
				continue
			}
			stats.Utterances++
			if len(u.Vector) > 0 {
				stats.Embedded++
			}
			interviews[u.InterviewId] = true
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	stats.Interviews = len(interviews)
	return stats, nil
}

// readUtterance reads an utterance from the transaction.
// Returns (nil, nil) when the key does not exist.
func (r *UtteranceRepository) readUtterance(tx *badger.Txn, key []byte) (*core.Utterance, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var u *core.Utterance
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		u, unmarshalErr = storage.UnmarshalUtterance(val)
		return unmarshalErr
	})
	return u, err
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched lengths or zero-magnitude inputs.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
