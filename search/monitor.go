package search

import "github.com/poiesic/docindex/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterEmbed(vector []float32)
	AfterSearch(hits []core.SearchHit)
	Finish(hits []core.SearchHit, err error)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                      {}
func (n *noopMonitor) AfterEmbed(_ []float32)              {}
func (n *noopMonitor) AfterSearch(_ []core.SearchHit)      {}
func (n *noopMonitor) Finish(_ []core.SearchHit, _ error) {}
