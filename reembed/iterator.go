// Copyright 2026 Vocalia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"

	"github.com/vocalia/anamnesis/core"
	"github.com/vocalia/anamnesis/storage"
)

const (
	// DefaultBatchSize is the default number of utterances to process in each batch
	DefaultBatchSize = 100
)

// UtteranceIterator iterates over stored utterances in batches.
type UtteranceIterator struct {
	repo      storage.UtteranceRepository
	filter    storage.Filter
	batchSize int
}

// NewUtteranceIterator creates a new utterance iterator.
// filter restricts iteration to matching utterances; a zero filter visits all.
// batchSize: number of utterances per batch (must be > 0)
func NewUtteranceIterator(repo storage.UtteranceRepository, filter storage.Filter, batchSize int) *UtteranceIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &UtteranceIterator{
		repo:      repo,
		filter:    filter,
		batchSize: batchSize,
	}
}

// ForEach iterates over all matching utterances, calling fn for each batch.
// Iteration stops on first error from fn or when all utterances are processed.
// Context cancellation is checked between batches.
func (it *UtteranceIterator) ForEach(ctx context.Context, fn func([]*core.Utterance) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	utterances, err := it.repo.ListUtterances(ctx, it.filter)
	if err != nil {
		return err
	}

	if len(utterances) == 0 {
		return nil
	}

	for i := 0; i < len(utterances); i += it.batchSize {
		end := i + it.batchSize
		if end > len(utterances) {
			end = len(utterances)
		}

		if err := fn(utterances[i:end]); err != nil {
			return err
		}

		// Check context after each batch
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
