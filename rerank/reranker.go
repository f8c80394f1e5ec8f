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


package rerank

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/vocalia/anamnesis/ai"
	"github.com/vocalia/anamnesis/core"
)

// DefaultTimeout bounds a single re-ranking call.
const DefaultTimeout = 3 * time.Second

// Reranker re-orders retrieved candidates using a cross-encoder relevance
// signal. Re-ranking is best effort: any scoring failure returns the
// original ordering with the Degraded flag set, never an error.
type Reranker struct {
	scorer  ai.RelevanceScorer
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker) error

// WithTimeout bounds the scoring call. On expiry the original ordering
// is returned degraded.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Reranker) error {
		if timeout <= 0 {
			return ErrInvalidTimeout
		}
		r.timeout = timeout
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewReranker creates a new reranker.
func NewReranker(provider ai.AIProvider, opts ...Option) (*Reranker, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Reranker{
		scorer:  provider.RelevanceScorer(),
		timeout: DefaultTimeout,
		logger:  slog.Default().With("component", "rerank"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Rerank re-scores the results against the query and returns them in the
// new order, truncated to query.TopK. When scoring fails or times out the
// input ordering is returned unchanged with Degraded set on every result.
func (r *Reranker) Rerank(ctx context.Context, query *core.Query, results []*core.RankedResult) []*core.RankedResult {
	if len(results) == 0 {
		return results
	}

	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Utterance.Text
	}

	scoreCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	scores, err := r.scorer.ScorePairs(scoreCtx, query.Text, texts)
	if err != nil || len(scores) != len(results) {
		if err != nil {
			r.logger.Warn("re-ranking failed, returning original ordering",
				"timeout", ai.IsTimeout(err),
				"err", err)
		} else {
			r.logger.Warn("re-ranking returned misaligned scores, returning original ordering",
				"expected", len(results), "received", len(scores))
		}
		return degrade(results, query.TopK)
	}

	for i, result := range results {
		result.Score = scores[i]
		result.Degraded = false
	}

	// Stable so equal scores keep their pre-rerank relative order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	results = truncate(results, query.TopK)
	for i, result := range results {
		result.Rank = i + 1
	}
	return results
}

// degrade returns the original ordering flagged as degraded.
func degrade(results []*core.RankedResult, topK int) []*core.RankedResult {
	results = truncate(results, topK)
	for _, result := range results {
		result.Degraded = true
	}
	return results
}

func truncate(results []*core.RankedResult, topK int) []*core.RankedResult {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}
