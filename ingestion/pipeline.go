package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/vocalia/anamnesis/ai"
	"github.com/vocalia/anamnesis/core"
	"github.com/vocalia/anamnesis/storage"
)

const (
	// DefaultBatchSize is the number of utterances embedded and written per batch.
	DefaultBatchSize = 100

	// DefaultMaxAttempts bounds retries of transient storage failures.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the initial backoff delay between retries.
	DefaultBaseDelay = 100 * time.Millisecond
)

// Pipeline orchestrates the ingestion of reconciled utterances.
// It embeds texts in batches, writes through the utterance repository,
// and retries transient storage failures with exponential backoff.
type Pipeline struct {
	repository  storage.UtteranceRepository
	embedder    ai.Embedder
	pool        *ants.Pool
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent batch processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many utterances are embedded and written per batch.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets the retry policy for transient storage failures.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repository storage.UtteranceRepository, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repository:  repository,
		embedder:    provider.Embedder(),
		pool:        pool,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		logger:      slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest embeds and stores utterances. The write is idempotent: re-ingesting
// the same utterances counts them as updates, not inserts. Invalid utterances
// are rejected individually and reported in the result; the rest still commit.
// Batches run concurrently on the worker pool but the merged result does not
// depend on scheduling order.
func (p *Pipeline) Ingest(ctx context.Context, utterances []*core.Utterance) (*core.WriteResult, error) {
	if len(utterances) == 0 {
		return &core.WriteResult{}, nil
	}

	batches := chunk(utterances, p.batchSize)
	p.logger.Info("ingesting utterances", "count", len(utterances), "batches", len(batches))

	results := make([]*core.WriteResult, len(batches))
	errs := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = p.ingestBatch(ctx, batch)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	merged := &core.WriteResult{}
	for i, r := range results {
		if errs[i] != nil {
			return nil, errs[i]
		}
		merged.Merge(r)
	}

	p.logger.Info("ingestion complete",
		"inserted", merged.Inserted,
		"updated", merged.Updated,
		"rejected", len(merged.Rejected))
	return merged, nil
}

// ingestBatch embeds the texts that need it and upserts the batch.
func (p *Pipeline) ingestBatch(ctx context.Context, batch []*core.Utterance) (*core.WriteResult, error) {
	if err := p.embedMissing(ctx, batch); err != nil {
		return nil, err
	}

	var result *core.WriteResult
	var permanentErr error
	err := RetryWithBackoff(ctx, func() error {
		r, upsertErr := p.repository.UpsertUtterances(ctx, batch...)
		if upsertErr == nil {
			result = r
			return nil
		}
		if !storage.IsUnavailable(upsertErr) {
			// Only transient failures are worth retrying.
			permanentErr = upsertErr
			return nil
		}
		return upsertErr
	}, p.maxAttempts, p.baseDelay)
	if err != nil {
		return nil, err
	}
	if permanentErr != nil {
		return nil, permanentErr
	}
	return result, nil
}

// embedMissing generates vectors for utterances that need one: valid,
// no vector attached, and not already stored with a vector for the same text.
// Stored vectors for unchanged text are preserved by the repository, so
// re-ingestion does not call the embedder again.
func (p *Pipeline) embedMissing(ctx context.Context, batch []*core.Utterance) error {
	var pending []*core.Utterance

	ids := make([]core.ID, 0, len(batch))
	for _, u := range batch {
		if core.ValidateUtterance(u) != nil {
			// Leave it in the batch; the repository records the rejection.
			continue
		}
		u.AssignId()
		ids = append(ids, u.Id)
	}

	existing := make(map[core.ID]*core.Utterance)
	if len(ids) > 0 {
		stored, err := p.repository.GetUtterances(ctx, ids...)
		if err != nil {
			return err
		}
		for _, u := range stored {
			existing[u.Id] = u
		}
	}

	for _, u := range batch {
		if core.ValidateUtterance(u) != nil || len(u.Vector) > 0 {
			continue
		}
		if old, ok := existing[u.Id]; ok && old.Text == u.Text && len(old.Vector) > 0 {
			continue
		}
		pending = append(pending, u)
	}

	if len(pending) == 0 {
		return nil
	}

	texts := make([]string, len(pending))
	for i, u := range pending {
		texts[i] = u.Text
	}

	p.logger.Debug("generating embeddings", "count", len(texts))
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(pending) {
		return fmt.Errorf("%w: expected %d vectors, received %d", ErrEmbeddingFailed, len(pending), len(vectors))
	}

	for i, u := range pending {
		u.Vector = vectors[i]
	}
	return nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// chunk splits items into slices of at most size elements.
func chunk(items []*core.Utterance, size int) [][]*core.Utterance {
	var batches [][]*core.Utterance
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
