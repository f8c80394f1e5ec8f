package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocalia/anamnesis/ai/mock"
	"github.com/vocalia/anamnesis/core"
	"github.com/vocalia/anamnesis/storage"
	"github.com/vocalia/anamnesis/storage/badger"
)

// queryVector is what the test embedder returns for every query.
var queryVector = []float32{1, 0, 0}

func newTestSearcher(t *testing.T, opts ...Option) (*Searcher, storage.UtteranceRepository) {
	t.Helper()

	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return queryVector, nil
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockScorer(), mock.NewMockExplainer())

	searcher, err := NewSearcher(repo, provider, opts...)
	require.NoError(t, err)
	return searcher, repo
}

func seedUtterance(t *testing.T, repo storage.UtteranceRepository, interviewId string, speaker core.SpeakerRole, start float64, text string, vector []float32) *core.Utterance {
	t.Helper()

	u := &core.Utterance{
		InterviewId: interviewId,
		Speaker:     speaker,
		StartTime:   start,
		EndTime:     start + 1,
		Text:        text,
		Confidence:  -1,
		Vector:      vector,
		Mode:        core.IngestOffline,
	}
	result, err := repo.UpsertUtterances(context.Background(), u)
	require.NoError(t, err)
	require.Empty(t, result.Rejected)
	return u
}

func hybridQuery(text string, topK int) *core.Query {
	return &core.Query{Text: text, TopK: topK, Mode: core.SearchHybrid}
}

func TestNewSearcher(t *testing.T) {
	t.Run("requires repository", func(t *testing.T) {
		_, err := NewSearcher(nil, mock.NewMockProvider())
		assert.ErrorIs(t, err, ErrRepositoryRequired)
	})

	t.Run("requires provider", func(t *testing.T) {
		repo, backend, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer backend.Close()

		_, err = NewSearcher(repo, nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		repo, backend, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer backend.Close()

		_, err = NewSearcher(repo, mock.NewMockProvider(), WithConfig(Config{
			SemanticWeight:      -1,
			KeywordWeight:       0.3,
			CandidateMultiplier: 4,
		}))
		assert.Error(t, err)
	})
}

func TestSearchValidation(t *testing.T) {
	searcher, _ := newTestSearcher(t)
	ctx := context.Background()

	t.Run("nil query", func(t *testing.T) {
		_, err := searcher.Search(ctx, nil)
		assert.ErrorIs(t, err, core.ErrInvalidQuery)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := searcher.Search(ctx, &core.Query{TopK: 5, Mode: core.SearchHybrid})
		assert.ErrorIs(t, err, core.ErrEmptyText)
	})

	t.Run("invalid top k", func(t *testing.T) {
		_, err := searcher.Search(ctx, &core.Query{Text: "headache", TopK: 0, Mode: core.SearchHybrid})
		assert.ErrorIs(t, err, core.ErrInvalidTopK)
	})

	t.Run("unset mode defaults to hybrid", func(t *testing.T) {
		results, err := searcher.Search(ctx, &core.Query{Text: "headache", TopK: 5})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSemanticSearch(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	exact := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 0, "exact match", []float32{1, 0, 0})
	near := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 5, "close match", []float32{0.8, 0.6, 0})
	seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 10, "orthogonal", []float32{0, 1, 0})

	results, err := searcher.Search(ctx, &core.Query{Text: "anything", TopK: 10, Mode: core.SearchSemantic})
	require.NoError(t, err)
	require.Len(t, results, 2) // orthogonal is below the similarity floor

	assert.Equal(t, exact.Id, results[0].Utterance.Id)
	assert.Equal(t, near.Id, results[1].Utterance.Id)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.InDelta(t, 0.8, results[1].Score, 1e-5)

	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, core.SearchSemantic, r.Method)
		assert.False(t, r.Degraded)
	}
}

func TestSemanticTieBreakByStartTime(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	later := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 30, "same vector later", []float32{1, 0, 0})
	earlier := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 10, "same vector earlier", []float32{1, 0, 0})

	results, err := searcher.Search(ctx, &core.Query{Text: "anything", TopK: 10, Mode: core.SearchSemantic})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, earlier.Id, results[0].Utterance.Id)
	assert.Equal(t, later.Id, results[1].Utterance.Id)
}

func TestLexicalSearch(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	both := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 0, "headache pain", nil)
	one := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 5, "headache mentioned once only", nil)
	seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 10, "completely unrelated words here", nil)

	results, err := searcher.Search(ctx, &core.Query{Text: "headache pain", TopK: 10, Mode: core.SearchLexical})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, both.Id, results[0].Utterance.Id)
	assert.Equal(t, one.Id, results[1].Utterance.Id)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, core.SearchLexical, results[0].Method)
}

func TestHybridFusion(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	// Strong lexical, weak semantic.
	lexOnly := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 0, "headache pain", nil)
	// Strong semantic, no lexical overlap.
	semOnly := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 5, "completely different words", []float32{1, 0, 0})
	// Weak on both.
	weak := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 10, "headache mentioned once only", []float32{0.8, 0.6, 0})

	results, err := searcher.Search(ctx, hybridQuery("headache pain", 10))
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Semantic carries 0.7: the semantic-only hit normalizes to 1.0 on the
	// semantic axis and wins. Lexical-only gets 0.3, the weak one gets the
	// zero ends of both normalized ranges.
	assert.Equal(t, semOnly.Id, results[0].Utterance.Id)
	assert.Equal(t, lexOnly.Id, results[1].Utterance.Id)
	assert.Equal(t, weak.Id, results[2].Utterance.Id)

	assert.InDelta(t, 0.7, results[0].Score, 1e-5)
	assert.InDelta(t, 0.3, results[1].Score, 1e-5)
	assert.InDelta(t, 0.0, results[2].Score, 1e-5)

	for _, r := range results {
		assert.Equal(t, core.SearchHybrid, r.Method)
	}
}

func TestHybridTopKBound(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, float64(i*2),
			fmt.Sprintf("headache complaint number %d", i), []float32{1, 0, 0})
	}

	for _, topK := range []int{1, 3, 5, 50} {
		results, err := searcher.Search(ctx, hybridQuery("headache", topK))
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), topK)
	}
}

func TestSearchSpeakerFilter(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 0, "patient headache", []float32{1, 0, 0})
	seedUtterance(t, repo, "intv-1", core.SpeakerRoleClinician, 5, "clinician headache", []float32{1, 0, 0})
	seedUtterance(t, repo, "intv-1", core.SpeakerRoleUnknown, 10, "unknown headache", []float32{1, 0, 0})

	results, err := searcher.Search(ctx, &core.Query{
		Text:    "headache",
		TopK:    10,
		Mode:    core.SearchHybrid,
		Speaker: core.SpeakerFilterPatient,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, core.SpeakerRolePatient, r.Utterance.Speaker)
	}
}

func TestSearchInterviewFilter(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 0, "headache in one", []float32{1, 0, 0})
	seedUtterance(t, repo, "intv-2", core.SpeakerRolePatient, 0, "headache in two", []float32{1, 0, 0})

	results, err := searcher.Search(ctx, &core.Query{
		Text:         "headache",
		TopK:         10,
		Mode:         core.SearchHybrid,
		InterviewIds: []string{"intv-2"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "intv-2", results[0].Utterance.InterviewId)
}

func TestSearchEmptyResultIsNotError(t *testing.T) {
	searcher, _ := newTestSearcher(t)

	results, err := searcher.Search(context.Background(), hybridQuery("headache", 5))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("model unavailable")
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockScorer(), mock.NewMockExplainer())

	searcher, err := NewSearcher(repo, provider)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), hybridQuery("headache", 5))
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestHybridWeightMonotonicity(t *testing.T) {
	ctx := context.Background()

	// Two candidates with equal lexical scores; A has the strictly higher
	// semantic score. Raising the semantic weight must never drop A below B.
	for _, weights := range []struct{ sem, kw float32 }{
		{0.5, 0.5},
		{0.7, 0.3},
		{0.9, 0.1},
	} {
		cfg := DefaultConfig()
		cfg.SemanticWeight = weights.sem
		cfg.KeywordWeight = weights.kw

		searcher, repo := newTestSearcher(t, WithConfig(cfg))
		a := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 0, "headache", []float32{1, 0, 0})
		b := seedUtterance(t, repo, "intv-1", core.SpeakerRolePatient, 5, "headache", []float32{0.8, 0.6, 0})

		results, err := searcher.Search(ctx, hybridQuery("headache", 10))
		require.NoError(t, err)
		require.Len(t, results, 2)

		rankOf := map[core.ID]int{}
		for _, r := range results {
			rankOf[r.Utterance.Id] = r.Rank
		}
		assert.Less(t, rankOf[a.Id], rankOf[b.Id], "weights %.1f/%.1f", weights.sem, weights.kw)
	}
}

func TestLexicalScore(t *testing.T) {
	terms := tokenizeAndFilter("headache pain")

	assert.Equal(t, float32(0), lexicalScore(terms, "nothing relevant at all"))
	assert.Equal(t, float32(0), lexicalScore(nil, "headache"))
	assert.Greater(t, lexicalScore(terms, "headache pain"), lexicalScore(terms, "headache something else entirely"))
	assert.LessOrEqual(t, lexicalScore(terms, "headache pain headache pain"), float32(1))
}

func TestTokenizeAndFilter(t *testing.T) {
	assert.Equal(t, []string{"headache", "severe"}, tokenizeAndFilter("The headache is severe."))
	assert.Empty(t, tokenizeAndFilter("the a an"))
}
