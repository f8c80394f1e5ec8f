package search

import (
	"github.com/vocalia/anamnesis/core"
	"github.com/vocalia/anamnesis/storage"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query *core.Query)
	AfterSemanticSearch(matches []*storage.SimilarityMatch)
	AfterLexicalSearch(candidates int)
	AfterFusion(candidates int)
	Finish(results []*core.RankedResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.Query)                               {}
func (n *noopMonitor) AfterSemanticSearch(_ []*storage.SimilarityMatch) {}
func (n *noopMonitor) AfterLexicalSearch(_ int)                          {}
func (n *noopMonitor) AfterFusion(_ int)                                 {}
func (n *noopMonitor) Finish(_ []*core.RankedResult)                     {}
