package rerank

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vocalia/anamnesis/ai/mock"
	"github.com/vocalia/anamnesis/core"
)

func rankedResults(texts ...string) []*core.RankedResult {
	results := make([]*core.RankedResult, len(texts))
	for i, text := range texts {
		results[i] = &core.RankedResult{
			Utterance: &core.Utterance{
				Id:          core.IDFromContent(text),
				InterviewId: "intv-1",
				Speaker:     core.SpeakerRolePatient,
				StartTime:   float64(i),
				EndTime:     float64(i) + 1,
				Text:        text,
			},
			Score:  float32(len(texts)-i) / float32(len(texts)),
			Rank:   i + 1,
			Method: core.SearchHybrid,
		}
	}
	return results
}

func newReranker(t *testing.T, scorer *mock.MockScorer, opts ...Option) *Reranker {
	t.Helper()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), scorer, mock.NewMockExplainer())
	r, err := NewReranker(provider, opts...)
	require.NoError(t, err)
	return r
}

func TestNewReranker(t *testing.T) {
	t.Run("requires provider", func(t *testing.T) {
		_, err := NewReranker(nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("rejects invalid timeout", func(t *testing.T) {
		_, err := NewReranker(mock.NewMockProvider(), WithTimeout(0))
		assert.ErrorIs(t, err, ErrInvalidTimeout)
	})
}

func TestRerankReorders(t *testing.T) {
	scorer := mock.NewMockScorer()
	scorer.ScorePairsFunc = func(ctx context.Context, query string, texts []string) ([]float32, error) {
		// Reverse the incoming order.
		scores := make([]float32, len(texts))
		for i := range texts {
			scores[i] = float32(i) / float32(len(texts))
		}
		return scores, nil
	}
	r := newReranker(t, scorer)

	results := rankedResults("first", "second", "third")
	query := &core.Query{Text: "anything", TopK: 10, Mode: core.SearchHybrid}

	reranked := r.Rerank(context.Background(), query, results)
	require.Len(t, reranked, 3)

	assert.Equal(t, "third", reranked[0].Utterance.Text)
	assert.Equal(t, "second", reranked[1].Utterance.Text)
	assert.Equal(t, "first", reranked[2].Utterance.Text)

	for i, result := range reranked {
		assert.Equal(t, i+1, result.Rank)
		assert.False(t, result.Degraded)
	}
}

func TestRerankTruncatesToTopK(t *testing.T) {
	r := newReranker(t, mock.NewMockScorer())

	results := rankedResults("one", "two", "three", "four")
	query := &core.Query{Text: "anything", TopK: 2, Mode: core.SearchHybrid}

	reranked := r.Rerank(context.Background(), query, results)
	assert.Len(t, reranked, 2)
}

func TestRerankDegradesOnScorerError(t *testing.T) {
	scorer := mock.NewMockScorer()
	scorer.ScorePairsFunc = func(ctx context.Context, query string, texts []string) ([]float32, error) {
		return nil, fmt.Errorf("model unavailable")
	}
	r := newReranker(t, scorer)

	results := rankedResults("first", "second")
	query := &core.Query{Text: "anything", TopK: 10, Mode: core.SearchHybrid}

	reranked := r.Rerank(context.Background(), query, results)
	require.Len(t, reranked, 2)

	// Original ordering preserved, every result flagged.
	assert.Equal(t, "first", reranked[0].Utterance.Text)
	assert.Equal(t, "second", reranked[1].Utterance.Text)
	for _, result := range reranked {
		assert.True(t, result.Degraded)
	}
}

func TestRerankDegradesOnTimeout(t *testing.T) {
	scorer := mock.NewMockScorer()
	scorer.ScorePairsFunc = func(ctx context.Context, query string, texts []string) ([]float32, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return make([]float32, len(texts)), nil
		}
	}
	r := newReranker(t, scorer, WithTimeout(10*time.Millisecond))

	results := rankedResults("first", "second")
	query := &core.Query{Text: "anything", TopK: 10, Mode: core.SearchHybrid}

	reranked := r.Rerank(context.Background(), query, results)
	require.Len(t, reranked, 2)
	assert.Equal(t, "first", reranked[0].Utterance.Text)
	for _, result := range reranked {
		assert.True(t, result.Degraded)
	}
}

func TestRerankDegradesOnMisalignedScores(t *testing.T) {
	scorer := mock.NewMockScorer()
	scorer.ScorePairsFunc = func(ctx context.Context, query string, texts []string) ([]float32, error) {
		return []float32{0.5}, nil
	}
	r := newReranker(t, scorer)

	results := rankedResults("first", "second")
	query := &core.Query{Text: "anything", TopK: 10, Mode: core.SearchHybrid}

	reranked := r.Rerank(context.Background(), query, results)
	require.Len(t, reranked, 2)
	for _, result := range reranked {
		assert.True(t, result.Degraded)
	}
}

func TestRerankEmptyInput(t *testing.T) {
	r := newReranker(t, mock.NewMockScorer())
	query := &core.Query{Text: "anything", TopK: 10, Mode: core.SearchHybrid}

	assert.Empty(t, r.Rerank(context.Background(), query, nil))
}

func TestRerankStableOnEqualScores(t *testing.T) {
	scorer := mock.NewMockScorer()
	scorer.ScorePairsFunc = func(ctx context.Context, query string, texts []string) ([]float32, error) {
		scores := make([]float32, len(texts))
		for i := range scores {
			scores[i] = 0.5
		}
		return scores, nil
	}
	r := newReranker(t, scorer)

	results := rankedResults("first", "second", "third")
	query := &core.Query{Text: "anything", TopK: 10, Mode: core.SearchHybrid}

	reranked := r.Rerank(context.Background(), query, results)
	require.Len(t, reranked, 3)
	assert.Equal(t, "first", reranked[0].Utterance.Text)
	assert.Equal(t, "second", reranked[1].Utterance.Text)
	assert.Equal(t, "third", reranked[2].Utterance.Text)
}
