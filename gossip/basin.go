package gossip

import "time"

// Basin is a semantic cluster used as a coarse routing target. Mass is a
// conserved quantity under merge and split (sums are preserved); the
// centroid is a mass-weighted average, never recomputed from raw data.
type Basin struct {
	ID         string    `json:"id"`
	Centroid   []float64 `json:"centroid"`
	Mass       float64   `json:"mass"`
	AgentCount int       `json:"agent_count"`
	TopicLabel string    `json:"topic_label"`
}

// clone deep-copies the basin so snapshots never alias live state.
func (b *Basin) clone() *Basin {
	c := *b
	c.Centroid = append([]float64(nil), b.Centroid...)
	return &c
}

// Snapshot is the unit of gossip exchange: the sending node's basins at one
// point in time. It is immutable once constructed; receivers consume and
// discard it.
type Snapshot struct {
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
	Basins    []*Basin  `json:"basins"`
}
