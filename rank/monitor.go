package rank

import "github.com/poiesic/linkrank/core"

// RankMonitor provides hooks to observe the ranking process.
// CandidateScored is called in provider order after all embeddings have
// been fetched.
type RankMonitor interface {
	Start(message string, candidates int)
	AfterMessageEmbedding(vector []float32)
	CandidateScored(scored core.ScoredCandidate)
	Finish(ranked core.RankedResultSet)
}

// noopMonitor is a no-op implementation of RankMonitor
type noopMonitor struct{}

var _ RankMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)                  {}
func (n *noopMonitor) AfterMessageEmbedding(_ []float32)      {}
func (n *noopMonitor) CandidateScored(_ core.ScoredCandidate) {}
func (n *noopMonitor) Finish(_ core.RankedResultSet)          {}
