package mock

import (
	"context"
	"fmt"
)

// MockExplainer is a test double for ai.Explainer.
type MockExplainer struct {
	// ExplainFunc is called by Explain if set.
	// If nil, uses default canned behavior.
	ExplainFunc func(ctx context.Context, query string, passages []string) (string, error)

	callCount int
}

// NewMockExplainer creates a mock explainer with default behavior.
func NewMockExplainer() *MockExplainer {
	return &MockExplainer{}
}

// Explain returns a deterministic canned explanation.
func (m *MockExplainer) Explain(ctx context.Context, query string, passages []string) (string, error) {
	m.callCount++

	if m.ExplainFunc != nil {
		return m.ExplainFunc(ctx, query, passages)
	}

	return fmt.Sprintf("%d passages matched %q", len(passages), query), nil
}

// CallCount returns the number of times Explain was called.
func (m *MockExplainer) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockExplainer) Reset() {
	m.callCount = 0
	m.ExplainFunc = nil
}
