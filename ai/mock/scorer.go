package mock

import (
	"context"
	"strings"
)

// MockScorer is a test double for ai.RelevanceScorer.
// It allows custom behavior injection via function fields.
type MockScorer struct {
	// ScorePairsFunc is called by ScorePairs if set.
	// If nil, uses default word-overlap scoring.
	ScorePairsFunc func(ctx context.Context, query string, texts []string) ([]float32, error)

	callCount int
}

// NewMockScorer creates a mock scorer with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockScorer().
func NewMockScorer() *MockScorer {
	return &MockScorer{}
}

// ScorePairs scores each text by the fraction of query words it contains.
// The default behavior is deterministic and stays in [0,1], which makes it
// usable for ranking assertions in tests.
func (m *MockScorer) ScorePairs(ctx context.Context, query string, texts []string) ([]float32, error) {
	m.callCount++

	if m.ScorePairsFunc != nil {
		return m.ScorePairsFunc(ctx, query, texts)
	}

	queryWords := strings.Fields(strings.ToLower(query))
	scores := make([]float32, len(texts))
	if len(queryWords) == 0 {
		return scores, nil
	}

	for i, text := range texts {
		lower := strings.ToLower(text)
		matched := 0
		for _, word := range queryWords {
			if strings.Contains(lower, word) {
				matched++
			}
		}
		scores[i] = float32(matched) / float32(len(queryWords))
	}
	return scores, nil
}

// CallCount returns the number of times ScorePairs was called.
func (m *MockScorer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockScorer) Reset() {
	m.callCount = 0
	m.ScorePairsFunc = nil
}
