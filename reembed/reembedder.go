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
	"fmt"
	"io"
	"time"

	"github.com/vocalia/anamnesis/ai"
	"github.com/vocalia/anamnesis/core"
	"github.com/vocalia/anamnesis/ingestion"
	"github.com/vocalia/anamnesis/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of utterances to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of utterances)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Filter restricts reembedding to matching utterances.
	// Zero value reembeds the whole store.
	Filter storage.Filter
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder regenerates the embedding vectors of stored utterances.
// Used after switching embedding models, when every stored vector must be
// recomputed against the new model.
type Reembedder struct {
	repo     storage.UtteranceRepository
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	iterator *UtteranceIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.UtteranceRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &Reembedder{
		repo:     repo,
		embedder: embedder,
		config:   config,
		progress: progress,
		iterator: NewUtteranceIterator(repo, config.Filter, config.BatchSize),
	}, nil
}

// Run executes the reembedding operation.
// Every matching utterance gets a freshly generated vector.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	all, err := r.repo.ListUtterances(ctx, r.config.Filter)
	if err != nil {
		return fmt.Errorf("failed to query utterances: %w", err)
	}

	total := len(all)
	if total == 0 {
		fmt.Fprintf(r.progress, "No utterances found (0 records)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d utterances (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(batch []*core.Utterance) error {
		if err := r.processBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(batch)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d utterances in %v (%.1f utterances/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}

// processBatch embeds all texts of the batch and writes the new vectors.
func (r *Reembedder) processBatch(ctx context.Context, batch []*core.Utterance) error {
	texts := make([]string, len(batch))
	for i, u := range batch {
		texts[i] = u.Text
	}

	var vectors [][]float32
	err := ingestion.RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(vectors))
	}

	for i, u := range batch {
		u.Vector = vectors[i]
	}

	return ingestion.RetryWithBackoff(ctx, func() error {
		_, upsertErr := r.repo.UpsertUtterances(ctx, batch...)
		return upsertErr
	}, r.config.MaxRetries, r.config.RetryDelay)
}
