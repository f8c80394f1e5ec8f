package evaluate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/vocalia/anamnesis/core"
)

// RetrievalFunc is the system under test: it answers one query with a
// ranked result list.
type RetrievalFunc func(ctx context.Context, query *core.Query) ([]*core.RankedResult, error)

// MetricSet aggregates retrieval quality metrics over a set of queries.
type MetricSet struct {
	Precision map[int]float64 // keyed by k
	Recall    map[int]float64 // keyed by k
	NDCG      map[int]float64 // keyed by k
	MAP       float64
	Queries   int // queries contributing to the averages
}

// QueryResult holds the per-query metrics for one judgment.
type QueryResult struct {
	QueryId          string
	Speaker          core.SpeakerFilter
	Retrieved        int
	Precision        map[int]float64
	Recall           map[int]float64
	NDCG             map[int]float64
	AveragePrecision float64
	// Skipped marks judgments with no relevant utterances; they appear
	// here but are excluded from every aggregate.
	Skipped    bool
	SkipReason string
}

// Report is the complete outcome of one evaluation run.
type Report struct {
	Overall   MetricSet
	BySpeaker map[core.SpeakerFilter]MetricSet
	PerQuery  []QueryResult
	KValues   []int
}

// DefaultKValues are the cutoffs used when none are requested.
var DefaultKValues = []int{1, 5, 10}

// Engine runs a labeled query set against a retrieval function and
// computes Precision@K, Recall@K, MAP, and NDCG@K, overall and broken
// down by the speaker filter of each query.
type Engine struct {
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithPoolSize sets the worker pool size for concurrent query execution.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new evaluation engine.
func NewEngine(opts ...Option) (*Engine, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		pool:   pool,
		logger: slog.Default().With("component", "evaluate"),
	}

	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Release()
			return nil, optErr
		}
	}

	return e, nil
}

// Release releases the worker pool.
// The engine should not be used after calling Release.
func (e *Engine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Evaluate runs every judgment's query through retrieve and scores the
// results against the judgment's relevant set. Queries run concurrently
// but the report is deterministic: per-query entries keep judgment order
// and aggregates are position-independent means.
//
// Judgments with an empty relevant set are reported with a skip flag and
// excluded from all aggregates. A retrieval failure fails the whole run.
func (e *Engine) Evaluate(ctx context.Context, judgments []core.RelevanceJudgment, retrieve RetrievalFunc, kValues []int) (*Report, error) {
	if len(judgments) == 0 {
		return nil, ErrNoJudgments
	}
	if retrieve == nil {
		return nil, ErrRetrievalFuncRequired
	}
	if len(kValues) == 0 {
		kValues = DefaultKValues
	}

	e.logger.Info("starting evaluation", "queries", len(judgments), "kValues", kValues)

	perQuery := make([]QueryResult, len(judgments))
	errs := make([]error, len(judgments))

	var wg sync.WaitGroup
	for i := range judgments {
		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			perQuery[i], errs[i] = e.evaluateOne(ctx, &judgments[i], retrieve, kValues)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: query %q: %w", ErrRetrievalFailed, judgments[i].QueryId, err)
		}
	}

	report := &Report{
		Overall:   aggregate(perQuery, kValues, nil),
		BySpeaker: make(map[core.SpeakerFilter]MetricSet),
		PerQuery:  perQuery,
		KValues:   kValues,
	}

	for _, speaker := range speakersPresent(perQuery) {
		report.BySpeaker[speaker] = aggregate(perQuery, kValues, &speaker)
	}

	e.logger.Info("evaluation complete",
		"queries", len(perQuery),
		"scored", report.Overall.Queries,
		"map", report.Overall.MAP)
	return report, nil
}

func (e *Engine) evaluateOne(ctx context.Context, judgment *core.RelevanceJudgment, retrieve RetrievalFunc, kValues []int) (QueryResult, error) {
	result := QueryResult{
		QueryId:   judgment.QueryId,
		Speaker:   judgment.Query.Speaker,
		Precision: make(map[int]float64, len(kValues)),
		Recall:    make(map[int]float64, len(kValues)),
		NDCG:      make(map[int]float64, len(kValues)),
	}

	if len(judgment.RelevantIds) == 0 {
		result.Skipped = true
		result.SkipReason = "no relevant utterances in judgment"
		return result, nil
	}

	query := judgment.Query
	ranked, err := retrieve(ctx, &query)
	if err != nil {
		return result, err
	}

	retrieved := make([]core.ID, len(ranked))
	for i, r := range ranked {
		retrieved[i] = r.Utterance.Id
	}
	result.Retrieved = len(retrieved)

	relevant := make(map[core.ID]bool, len(judgment.RelevantIds))
	for _, id := range judgment.RelevantIds {
		relevant[id] = true
	}

	for _, k := range kValues {
		result.Precision[k] = precisionAtK(retrieved, relevant, k)
		result.Recall[k] = recallAtK(retrieved, relevant, k)
		result.NDCG[k] = ndcgAtK(retrieved, relevant, k)
	}
	result.AveragePrecision = averagePrecision(retrieved, relevant)

	return result, nil
}

// aggregate averages per-query metrics over non-skipped queries, optionally
// restricted to one speaker filter.
func aggregate(perQuery []QueryResult, kValues []int, speaker *core.SpeakerFilter) MetricSet {
	set := MetricSet{
		Precision: make(map[int]float64, len(kValues)),
		Recall:    make(map[int]float64, len(kValues)),
		NDCG:      make(map[int]float64, len(kValues)),
	}

	for _, q := range perQuery {
		if q.Skipped {
			continue
		}
		if speaker != nil && q.Speaker != *speaker {
			continue
		}
		set.Queries++
		set.MAP += q.AveragePrecision
		for _, k := range kValues {
			set.Precision[k] += q.Precision[k]
			set.Recall[k] += q.Recall[k]
			set.NDCG[k] += q.NDCG[k]
		}
	}

	if set.Queries == 0 {
		return set
	}

	n := float64(set.Queries)
	set.MAP /= n
	for _, k := range kValues {
		set.Precision[k] /= n
		set.Recall[k] /= n
		set.NDCG[k] /= n
	}
	return set
}

// speakersPresent lists the distinct speaker filters of scored queries,
// in ascending filter order for deterministic reports.
func speakersPresent(perQuery []QueryResult) []core.SpeakerFilter {
	seen := make(map[core.SpeakerFilter]bool)
	for _, q := range perQuery {
		if !q.Skipped {
			seen[q.Speaker] = true
		}
	}

	var speakers []core.SpeakerFilter
	for _, s := range []core.SpeakerFilter{core.SpeakerFilterAll, core.SpeakerFilterPatient, core.SpeakerFilterClinician} {
		if seen[s] {
			speakers = append(speakers, s)
		}
	}
	return speakers
}
