package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vocalia/anamnesis/ai"
	"github.com/vocalia/anamnesis/core"
	"github.com/vocalia/anamnesis/storage"
)

// Config holds the scoring parameters for hybrid retrieval.
type Config struct {
	// SemanticWeight is the fusion weight of the semantic signal.
	SemanticWeight float32

	// KeywordWeight is the fusion weight of the lexical signal.
	KeywordWeight float32

	// CandidateMultiplier widens the per-modality candidate sets for
	// hybrid fusion: each modality retrieves TopK * CandidateMultiplier.
	CandidateMultiplier int

	// MinSimilarity is the cosine similarity floor below which semantic
	// matches are discarded.
	MinSimilarity float32
}

// DefaultConfig returns the standard retrieval parameters.
func DefaultConfig() Config {
	return Config{
		SemanticWeight:      0.7,
		KeywordWeight:       0.3,
		CandidateMultiplier: 4,
		MinSimilarity:       0.3,
	}
}

func (c Config) validate() error {
	if c.SemanticWeight < 0 || c.KeywordWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if c.SemanticWeight == 0 && c.KeywordWeight == 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}
	if c.CandidateMultiplier < 1 {
		return fmt.Errorf("candidate multiplier must be at least 1, got %d", c.CandidateMultiplier)
	}
	return nil
}

// Searcher executes semantic, lexical, and hybrid retrieval over the
// utterance store.
type Searcher struct {
	repository storage.UtteranceRepository
	embedder   ai.Embedder
	config     Config
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithConfig overrides the default scoring parameters.
func WithConfig(config Config) Option {
	return func(s *Searcher) error {
		if err := config.validate(); err != nil {
			return err
		}
		s.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repository storage.UtteranceRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		repository: repository,
		embedder:   provider.Embedder(),
		config:     DefaultConfig(),
		logger:     slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search executes the query and returns at most query.TopK ranked results.
// An empty result is not an error.
func (s *Searcher) Search(ctx context.Context, query *core.Query) ([]*core.RankedResult, error) {
	return s.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor executes the query with monitoring callbacks at each
// stage of the retrieval process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query *core.Query, monitor SearchMonitor) ([]*core.RankedResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if query != nil && query.Mode == 0 {
		query.Mode = core.SearchHybrid
	}
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}

	monitor.Start(query)

	filter := storage.Filter{
		InterviewIds: query.InterviewIds,
		Speaker:      query.Speaker,
	}

	var results []*core.RankedResult
	var err error
	switch query.Mode {
	case core.SearchSemantic:
		results, err = s.searchSemantic(ctx, query, filter, monitor)
	case core.SearchLexical:
		results, err = s.searchLexical(ctx, query, filter, monitor)
	default:
		results, err = s.searchHybrid(ctx, query, filter, monitor)
	}
	if err != nil {
		return nil, err
	}

	for i, r := range results {
		r.Rank = i + 1
	}
	monitor.Finish(results)

	s.logger.Debug("search complete",
		"mode", query.Mode.String(),
		"topK", query.TopK,
		"results", len(results))
	return results, nil
}

func (s *Searcher) searchSemantic(ctx context.Context, query *core.Query, filter storage.Filter, monitor SearchMonitor) ([]*core.RankedResult, error) {
	matches, err := s.semanticCandidates(ctx, query.Text, filter, query.TopK)
	if err != nil {
		return nil, err
	}
	monitor.AfterSemanticSearch(matches)

	results := make([]*core.RankedResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, &core.RankedResult{
			Utterance: m.Utterance,
			Score:     m.Score,
			Method:    core.SearchSemantic,
		})
	}
	return results, nil
}

func (s *Searcher) searchLexical(ctx context.Context, query *core.Query, filter storage.Filter, monitor SearchMonitor) ([]*core.RankedResult, error) {
	scored, err := s.lexicalCandidates(ctx, query.Text, filter, query.TopK)
	if err != nil {
		return nil, err
	}
	monitor.AfterLexicalSearch(len(scored))

	results := make([]*core.RankedResult, 0, len(scored))
	for _, c := range scored {
		results = append(results, &core.RankedResult{
			Utterance: c.utterance,
			Score:     c.score,
			Method:    core.SearchLexical,
		})
	}
	return results, nil
}

// candidate accumulates per-modality signals for one utterance during fusion.
type candidate struct {
	utterance *core.Utterance
	semantic  float32
	lexical   float32
	hasSem    bool
	hasLex    bool
	combined  float32
}

func (s *Searcher) searchHybrid(ctx context.Context, query *core.Query, filter storage.Filter, monitor SearchMonitor) ([]*core.RankedResult, error) {
	widened := query.TopK * s.config.CandidateMultiplier

	matches, err := s.semanticCandidates(ctx, query.Text, filter, widened)
	if err != nil {
		return nil, err
	}
	monitor.AfterSemanticSearch(matches)

	lexical, err := s.lexicalCandidates(ctx, query.Text, filter, widened)
	if err != nil {
		return nil, err
	}
	monitor.AfterLexicalSearch(len(lexical))

	candidates := make(map[core.ID]*candidate, len(matches)+len(lexical))
	for _, m := range matches {
		candidates[m.Utterance.Id] = &candidate{
			utterance: m.Utterance,
			semantic:  m.Score,
			hasSem:    true,
		}
	}
	for _, l := range lexical {
		if c, ok := candidates[l.utterance.Id]; ok {
			c.lexical = l.score
			c.hasLex = true
			continue
		}
		candidates[l.utterance.Id] = &candidate{
			utterance: l.utterance,
			lexical:   l.score,
			hasLex:    true,
		}
	}
	monitor.AfterFusion(len(candidates))

	if len(candidates) == 0 {
		return []*core.RankedResult{}, nil
	}

	// Normalize each signal to [0,1] within its own candidate set.
	// An utterance absent from a modality contributes 0 for that signal.
	semMin, semMax := signalRange(candidates, func(c *candidate) (float32, bool) { return c.semantic, c.hasSem })
	lexMin, lexMax := signalRange(candidates, func(c *candidate) (float32, bool) { return c.lexical, c.hasLex })

	fused := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		var semNorm, lexNorm float32
		if c.hasSem {
			semNorm = normalize(c.semantic, semMin, semMax)
		}
		if c.hasLex {
			lexNorm = normalize(c.lexical, lexMin, lexMax)
		}
		c.combined = s.config.SemanticWeight*semNorm + s.config.KeywordWeight*lexNorm
		fused = append(fused, c)
	}

	slices.SortFunc(fused, func(a, b *candidate) int {
		if a.combined != b.combined {
			if a.combined > b.combined {
				return -1
			}
			return 1
		}
		if a.semantic != b.semantic {
			if a.semantic > b.semantic {
				return -1
			}
			return 1
		}
		if a.utterance.StartTime != b.utterance.StartTime {
			if a.utterance.StartTime < b.utterance.StartTime {
				return -1
			}
			return 1
		}
		if a.utterance.Id < b.utterance.Id {
			return -1
		}
		if a.utterance.Id > b.utterance.Id {
			return 1
		}
		return 0
	})

	if len(fused) > query.TopK {
		fused = fused[:query.TopK]
	}

	results := make([]*core.RankedResult, 0, len(fused))
	for _, c := range fused {
		results = append(results, &core.RankedResult{
			Utterance: c.utterance,
			Score:     c.combined,
			Method:    core.SearchHybrid,
		})
	}
	return results, nil
}

// semanticCandidates embeds the query text and retrieves the most similar
// stored utterances. An embedding failure makes the whole search unavailable.
func (s *Searcher) semanticCandidates(ctx context.Context, text string, filter storage.Filter, limit int) ([]*storage.SimilarityMatch, error) {
	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}

	matches, err := s.repository.FindSimilar(ctx, vector, filter, s.config.MinSimilarity, limit)
	if err != nil {
		s.logger.Error("error querying for similar utterances", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}
	return matches, nil
}

type lexicalMatch struct {
	utterance *core.Utterance
	score     float32
}

// lexicalCandidates scores all filtered utterances by term overlap and
// returns the top limit, ordered by score descending with ties broken by
// earlier start time.
func (s *Searcher) lexicalCandidates(ctx context.Context, text string, filter storage.Filter, limit int) ([]lexicalMatch, error) {
	utterances, err := s.repository.ListUtterances(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}

	queryTerms := tokenizeAndFilter(text)
	var scored []lexicalMatch
	for _, u := range utterances {
		score := lexicalScore(queryTerms, u.Text)
		if score > 0 {
			scored = append(scored, lexicalMatch{utterance: u, score: score})
		}
	}

	slices.SortFunc(scored, func(a, b lexicalMatch) int {
		if a.score != b.score {
			if a.score > b.score {
				return -1
			}
			return 1
		}
		if a.utterance.StartTime != b.utterance.StartTime {
			if a.utterance.StartTime < b.utterance.StartTime {
				return -1
			}
			return 1
		}
		if a.utterance.Id < b.utterance.Id {
			return -1
		}
		if a.utterance.Id > b.utterance.Id {
			return 1
		}
		return 0
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// signalRange finds the min and max of one signal across candidates.
func signalRange(candidates map[core.ID]*candidate, get func(*candidate) (float32, bool)) (float32, float32) {
	first := true
	var lo, hi float32
	for _, c := range candidates {
		v, ok := get(c)
		if !ok {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// normalize maps v into [0,1] given the observed range. A degenerate range
// maps every present value to 1 so a lone candidate keeps its full weight.
func normalize(v, lo, hi float32) float32 {
	if hi == lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}
