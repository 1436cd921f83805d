package gossip

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/swarmrail/swarmrail/core"
	"github.com/swarmrail/swarmrail/logging"
	"github.com/swarmrail/swarmrail/router"
)

// ErrBasinNotFound is returned when an operation references a basin id that
// does not exist on this node.
var ErrBasinNotFound = fmt.Errorf("basin not found")

// Config defines the capacity and clustering behavior of a Router.
type Config struct {
	// Dim is the centroid dimensionality for seeded basins.
	Dim int

	// MaxBasins is the hard ceiling on basin count. Exceeding it triggers
	// forced merging of the most-similar pair until back under.
	MaxBasins int

	// MergeThreshold is the minimum cosine similarity for the explicit
	// MergeSimilarBasins pass. Capacity enforcement ignores it: when over
	// the ceiling, the most-similar pair merges regardless.
	MergeThreshold float64

	// SplitThreshold is the agent count above which CheckSplit reports a
	// basin as overloaded.
	SplitThreshold int

	// SplitPerturbation scales the random centroid offset applied in
	// opposite directions to the two halves of a split.
	SplitPerturbation float64
}

// DefaultConfig suits a node tracking up to 50 topic-scale clusters.
var DefaultConfig = Config{
	Dim:               core.EmbeddingDim,
	MaxBasins:         50,
	MergeThreshold:    0.85,
	SplitThreshold:    25,
	SplitPerturbation: 0.05,
}

// Options configures a gossip Router using the functional options pattern.
type Options struct {
	// Config holds capacity and clustering parameters. Defaults to DefaultConfig.
	Config Config

	// NodeID identifies this node in outgoing snapshots. Defaults to a
	// fresh UUID.
	NodeID string

	// Local is the thermodynamic router used for per-message agent
	// selection on this node. Defaults to router.New().
	Local *router.Router

	// Bus receives basin merge/split/adopt notifications. Defaults to a
	// fresh bus; pass the substrate-wide bus to observe activity.
	Bus *core.Bus

	// Logger defaults to NoOp if nil.
	Logger logging.Logger

	// Clock timestamps outgoing snapshots. Defaults to time.Now.
	Clock func() time.Time

	// Rand drives split perturbation. Defaults to a time-seeded source.
	Rand *rand.Rand
}

// Router maintains this node's attractor basins and reconciles them with
// peer snapshots. It wraps a local thermodynamic router for the final
// per-message hop once a basin is chosen.
type Router struct {
	cfg    Config
	nodeID string
	local  *router.Router
	bus    *core.Bus
	logger logging.Logger
	clock  func() time.Time
	rng    *rand.Rand

	basins map[string]*Basin
	// applied tracks the last snapshot timestamp folded in per peer, so
	// re-receiving an identical snapshot is a no-op rather than a double
	// mass credit.
	applied map[string]time.Time
}

// New creates a gossip router with optional overrides.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.NodeID == "" {
		opts.NodeID = core.NewID()
	}
	if opts.Local == nil {
		opts.Local = router.New()
	}
	if opts.Bus == nil {
		opts.Bus = core.NewBus()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Router{
		cfg:     opts.Config,
		nodeID:  opts.NodeID,
		local:   opts.Local,
		bus:     opts.Bus,
		logger:  opts.Logger,
		clock:   opts.Clock,
		rng:     opts.Rand,
		basins:  make(map[string]*Basin),
		applied: make(map[string]time.Time),
	}
}

// NodeID returns this node's identifier.
func (g *Router) NodeID() string { return g.nodeID }

// Local returns the wrapped thermodynamic router.
func (g *Router) Local() *router.Router { return g.local }

// Size returns the current basin count.
func (g *Router) Size() int { return len(g.basins) }

// TotalMass sums the mass across all basins. Merging and splitting conserve it.
func (g *Router) TotalMass() float64 {
	var sum float64
	for _, b := range g.basins {
		sum += b.Mass
	}
	return sum
}

// AddBasin registers a basin and enforces the capacity ceiling. An empty id
// gets a fresh UUID. The basin is stored as given; callers hand over ownership.
func (g *Router) AddBasin(b *Basin) *Basin {
	if b.ID == "" {
		b.ID = core.NewID()
	}
	if b.Mass <= 0 {
		b.Mass = 1
	}
	g.basins[b.ID] = b
	g.enforceMaxBasins()
	return b
}

// RemoveBasin deletes a basin, reporting whether it existed.
func (g *Router) RemoveBasin(id string) bool {
	if _, ok := g.basins[id]; !ok {
		return false
	}
	delete(g.basins, id)
	return true
}

// Basin looks up a basin by id.
func (g *Router) Basin(id string) (*Basin, bool) {
	b, ok := g.basins[id]
	return b, ok
}

// Basins returns a snapshot copy of all basins in unspecified order.
func (g *Router) Basins() []*Basin {
	out := make([]*Basin, 0, len(g.basins))
	for _, b := range g.basins {
		out = append(out, b.clone())
	}
	return out
}

// Payload builds the snapshot to gossip to peers. Basins are deep-copied so
// the snapshot stays immutable once constructed.
func (g *Router) Payload() Snapshot {
	return Snapshot{NodeID: g.nodeID, Timestamp: g.clock(), Basins: g.Basins()}
}

// ReceiveGossip folds a peer snapshot into local state. Remote basins
// matching a local id merge via mass-weighted centroid average with summed
// mass and agent counts; unknown remote basins are adopted as-is; local-only
// basins are untouched. The merge never fails: malformed snapshots are
// accepted per the substrate's trust boundary. A snapshot no newer than the
// last one applied from the same peer is skipped entirely.
func (g *Router) ReceiveGossip(s Snapshot) {
	if last, ok := g.applied[s.NodeID]; ok && !s.Timestamp.After(last) {
		return
	}
	g.applied[s.NodeID] = s.Timestamp

	merged, adopted := 0, 0
	for _, remote := range s.Basins {
		if remote == nil {
			continue
		}
		local, ok := g.basins[remote.ID]
		if !ok {
			g.basins[remote.ID] = remote.clone()
			adopted++
			g.publish(core.TopicBasinAdopted, remote.ID, map[string]any{
				"peer_node": s.NodeID,
				"topic":     remote.TopicLabel,
			})
			continue
		}
		g.fold(local, remote)
		merged++
	}
	g.enforceMaxBasins()
	g.logger.Debug("gossip applied peer=%s merged=%d adopted=%d basins=%d",
		s.NodeID, merged, adopted, len(g.basins))
}

// fold merges remote into local in place: centroid by mass-weighted average,
// mass and agent count by sum. Total mass before equals total mass after.
func (g *Router) fold(local, remote *Basin) {
	total := local.Mass + remote.Mass
	if total > 0 && len(local.Centroid) == len(remote.Centroid) {
		for i := range local.Centroid {
			local.Centroid[i] = (local.Centroid[i]*local.Mass + remote.Centroid[i]*remote.Mass) / total
		}
	}
	local.Mass = total
	local.AgentCount += remote.AgentCount
	g.publish(core.TopicBasinMerged, local.ID, map[string]any{
		"mass":        local.Mass,
		"agent_count": local.AgentCount,
	})
}

// RouteToBasin returns the basin with maximum cosine similarity to the query
// vector, or false when no basins exist.
func (g *Router) RouteToBasin(vec []float64) (*Basin, bool) {
	var best *Basin
	bestSim := math.Inf(-1)
	for _, b := range g.basins {
		sim, err := core.Cosine(vec, b.Centroid)
		if err != nil {
			continue
		}
		if sim > bestSim {
			best = b
			bestSim = sim
		}
	}
	return best, best != nil
}

// RouteMessage selects a destination agent via the wrapped local router.
func (g *Router) RouteMessage(message []float64, candidates []router.Candidate) (*router.Candidate, error) {
	return g.local.Route(message, candidates)
}

// CheckSplit reports whether the basin's agent count exceeds the split
// threshold.
func (g *Router) CheckSplit(id string) bool {
	b, ok := g.basins[id]
	return ok && b.AgentCount > g.cfg.SplitThreshold
}

// SplitBasin replaces a basin with two halves whose centroids are perturbed
// in opposite directions by a small random vector. Mass is split evenly and
// the agent count partitioned floor/ceiling, so both totals are conserved.
// This is coarse load balancing, not a re-clustering of member agents.
func (g *Router) SplitBasin(id string) (*Basin, *Basin, error) {
	b, ok := g.basins[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrBasinNotFound, id)
	}

	offset := make([]float64, len(b.Centroid))
	for i := range offset {
		offset[i] = (g.rng.Float64()*2 - 1) * g.cfg.SplitPerturbation
	}

	lo := &Basin{
		ID:         core.NewID(),
		Centroid:   make([]float64, len(b.Centroid)),
		Mass:       b.Mass / 2,
		AgentCount: b.AgentCount / 2,
		TopicLabel: b.TopicLabel,
	}
	hi := &Basin{
		ID:         core.NewID(),
		Centroid:   make([]float64, len(b.Centroid)),
		Mass:       b.Mass / 2,
		AgentCount: b.AgentCount - b.AgentCount/2,
		TopicLabel: b.TopicLabel,
	}
	for i := range b.Centroid {
		lo.Centroid[i] = b.Centroid[i] - offset[i]
		hi.Centroid[i] = b.Centroid[i] + offset[i]
	}

	delete(g.basins, id)
	g.basins[lo.ID] = lo
	g.basins[hi.ID] = hi

	g.publish(core.TopicBasinSplit, id, map[string]any{
		"into":  []string{lo.ID, hi.ID},
		"topic": b.TopicLabel,
	})
	return lo, hi, nil
}

// MergeSimilarBasins repeatedly merges the most-similar basin pair whose
// cosine similarity meets the threshold (the configured one if threshold <= 0)
// and returns the number of merges performed.
func (g *Router) MergeSimilarBasins(threshold float64) int {
	if threshold <= 0 {
		threshold = g.cfg.MergeThreshold
	}
	merges := 0
	for len(g.basins) > 1 {
		a, b, sim := g.mostSimilarPair()
		if a == nil || sim < threshold {
			break
		}
		g.mergePair(a, b)
		merges++
	}
	return merges
}

// SeedAgentZeroAttractors creates one basin per topic label with a
// deterministic pseudo-embedding centroid, unit mass and no member agents.
// A stand-in for real embeddings: the same topic always seeds the same basin.
func (g *Router) SeedAgentZeroAttractors(topics []string) []*Basin {
	out := make([]*Basin, 0, len(topics))
	for _, topic := range topics {
		b := g.AddBasin(&Basin{
			Centroid:   core.PseudoEmbedding(topic, g.cfg.Dim),
			Mass:       1,
			AgentCount: 0,
			TopicLabel: topic,
		})
		out = append(out, b)
	}
	return out
}

// enforceMaxBasins merges the most-similar pair until the count is back at
// or under the ceiling. Runs after every AddBasin and ReceiveGossip. Over
// capacity the merge threshold is ignored; conserving the ceiling wins.
func (g *Router) enforceMaxBasins() {
	for g.cfg.MaxBasins > 0 && len(g.basins) > g.cfg.MaxBasins {
		a, b, _ := g.mostSimilarPair()
		if a == nil {
			return
		}
		g.mergePair(a, b)
	}
}

// mostSimilarPair scans all basin pairs for the maximum cosine similarity.
// O(n²) over at most MaxBasins+1 basins.
func (g *Router) mostSimilarPair() (a, b *Basin, sim float64) {
	ids := make([]*Basin, 0, len(g.basins))
	for _, basin := range g.basins {
		ids = append(ids, basin)
	}
	sim = math.Inf(-1)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			s, err := core.Cosine(ids[i].Centroid, ids[j].Centroid)
			if err != nil {
				continue
			}
			if s > sim {
				a, b, sim = ids[i], ids[j], s
			}
		}
	}
	return a, b, sim
}

// mergePair folds b into a (the higher-mass basin keeps its identity) and
// removes b.
func (g *Router) mergePair(a, b *Basin) {
	if b.Mass > a.Mass {
		a, b = b, a
	}
	g.fold(a, b)
	delete(g.basins, b.ID)
}

func (g *Router) publish(topic core.Topic, subject string, detail map[string]any) {
	if err := g.bus.Publish(core.NewNotification(topic, subject, detail)); err != nil {
		g.logger.Warn("gossip notification listener error: %v", err)
	}
}
