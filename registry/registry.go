// Package registry provides a read-mostly lookup table of routing candidates'
// model identities: a unit-norm identity embedding, named capability
// strengths, cost and context window per entry. Entries are registered once
// and looked up read-only thereafter; the router blends identity embeddings
// into its energy function, and hosts use FindBestMatch / FindByCapability
// for task placement.
package registry

import (
	"github.com/swarmrail/swarmrail/core"
)

// Capability names a skill with a strength score in [0, 1].
type Capability struct {
	Name     string
	Strength float64
}

// ModelEntry is static reference data describing one model identity.
type ModelEntry struct {
	ID                string
	IdentityEmbedding []float64 // unit norm, core.EmbeddingDim wide
	Capabilities      []Capability
	CostPer1K         float64
	MaxContext        int
}

// CapabilityStrength returns the strength of the named capability, or 0 if
// the entry does not declare it.
func (m *ModelEntry) CapabilityStrength(name string) float64 {
	for _, c := range m.Capabilities {
		if c.Name == name {
			return c.Strength
		}
	}
	return 0
}

// Registry is a pure lookup structure over static entries. It performs no
// I/O and holds no mutable per-request state.
type Registry struct {
	entries map[string]*ModelEntry
	order   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*ModelEntry)}
}

// Register adds (or replaces) an entry. A nil identity embedding is derived
// deterministically from the entry id, preserving the same-seed ⇒ identical
// vector contract tests rely on.
func (r *Registry) Register(entry ModelEntry) {
	if entry.IdentityEmbedding == nil {
		entry.IdentityEmbedding = core.PseudoEmbedding(entry.ID, core.EmbeddingDim)
	} else {
		core.Normalize(entry.IdentityEmbedding)
	}
	if _, exists := r.entries[entry.ID]; !exists {
		r.order = append(r.order, entry.ID)
	}
	r.entries[entry.ID] = &entry
}

// Get looks up an entry by id.
func (r *Registry) Get(id string) (*ModelEntry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Size returns the number of registered entries.
func (r *Registry) Size() int { return len(r.entries) }

// FindBestMatch returns the entry whose identity embedding has maximum
// cosine similarity to the task vector, among entries with CostPer1K at or
// below maxCost (maxCost <= 0 disables the ceiling). The boolean is false
// when the registry is empty or the cost filter removes every entry.
func (r *Registry) FindBestMatch(taskVec []float64, maxCost float64) (*ModelEntry, bool) {
	var best *ModelEntry
	bestSim := 0.0
	for _, id := range r.order {
		e := r.entries[id]
		if maxCost > 0 && e.CostPer1K > maxCost {
			continue
		}
		sim, err := core.Cosine(taskVec, e.IdentityEmbedding)
		if err != nil {
			continue // dimension mismatch: skip, the caller's vector decides the space
		}
		if best == nil || sim > bestSim {
			best = e
			bestSim = sim
		}
	}
	return best, best != nil
}

// FindByCapability returns every entry declaring the named capability with
// at least the given strength, in registration order.
func (r *Registry) FindByCapability(name string, minStrength float64) []*ModelEntry {
	var out []*ModelEntry
	for _, id := range r.order {
		e := r.entries[id]
		if e.CapabilityStrength(name) >= minStrength {
			out = append(out, e)
		}
	}
	return out
}
