package gossip

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrail/swarmrail/core"
)

func newTestRouter(cfg Config, node string) *Router {
	return New(func(o *Options) {
		o.Config = cfg
		o.NodeID = node
		o.Rand = rand.New(rand.NewSource(99))
	})
}

func smallConfig() Config {
	cfg := DefaultConfig
	cfg.Dim = 8
	return cfg
}

func basin(id string, centroid []float64, mass float64, agents int) *Basin {
	return &Basin{ID: id, Centroid: centroid, Mass: mass, AgentCount: agents, TopicLabel: id}
}

func TestReceiveGossipMergesAndConservesMass(t *testing.T) {
	g := newTestRouter(smallConfig(), "node-a")
	g.AddBasin(basin("shared", []float64{1, 0}, 2, 3))
	g.AddBasin(basin("local-only", []float64{0, 1}, 1, 1))

	remote := Snapshot{
		NodeID:    "node-b",
		Timestamp: time.Unix(100, 0),
		Basins: []*Basin{
			basin("shared", []float64{0, 1}, 6, 5),
			basin("remote-only", []float64{1, 1}, 4, 2),
		},
	}

	before := g.TotalMass() + 6 + 4
	g.ReceiveGossip(remote)

	assert.InDelta(t, before, g.TotalMass(), 1e-9, "merge must conserve total mass")

	merged, ok := g.Basin("shared")
	require.True(t, ok)
	assert.InDelta(t, 8.0, merged.Mass, 1e-9)
	assert.Equal(t, 8, merged.AgentCount)
	// Mass-weighted centroid: (1·2 + 0·6)/8 and (0·2 + 1·6)/8.
	assert.InDelta(t, 0.25, merged.Centroid[0], 1e-9)
	assert.InDelta(t, 0.75, merged.Centroid[1], 1e-9)

	_, ok = g.Basin("remote-only")
	assert.True(t, ok, "unknown remote basins are adopted")
	_, ok = g.Basin("local-only")
	assert.True(t, ok, "gossip never evicts local-only basins")
}

func TestReceiveGossipIdempotentPerSnapshot(t *testing.T) {
	g := newTestRouter(smallConfig(), "node-a")
	g.AddBasin(basin("shared", []float64{1, 0}, 2, 1))

	remote := Snapshot{
		NodeID:    "node-b",
		Timestamp: time.Unix(100, 0),
		Basins:    []*Basin{basin("shared", []float64{1, 0}, 3, 1)},
	}
	g.ReceiveGossip(remote)
	after := g.TotalMass()
	g.ReceiveGossip(remote) // identical snapshot: no double mass credit
	assert.Equal(t, after, g.TotalMass())

	// A genuinely newer snapshot from the same peer applies again.
	remote.Timestamp = time.Unix(200, 0)
	g.ReceiveGossip(remote)
	assert.InDelta(t, after+3, g.TotalMass(), 1e-9)
}

func TestReceiveGossipOrderIndependentMass(t *testing.T) {
	s1 := Snapshot{NodeID: "p1", Timestamp: time.Unix(1, 0), Basins: []*Basin{
		basin("x", []float64{1, 0}, 2, 1), basin("y", []float64{0, 1}, 3, 2),
	}}
	s2 := Snapshot{NodeID: "p2", Timestamp: time.Unix(2, 0), Basins: []*Basin{
		basin("x", []float64{0, 1}, 5, 4), basin("z", []float64{1, 1}, 1, 1),
	}}

	ab := newTestRouter(smallConfig(), "node-ab")
	ab.ReceiveGossip(s1)
	ab.ReceiveGossip(s2)

	ba := newTestRouter(smallConfig(), "node-ba")
	ba.ReceiveGossip(s2)
	ba.ReceiveGossip(s1)

	assert.InDelta(t, ab.TotalMass(), ba.TotalMass(), 1e-9, "total mass is order independent")
	assert.Equal(t, ab.Size(), ba.Size())
}

func TestCapacityEnforcedWithMassConserved(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxBasins = 50
	g := newTestRouter(cfg, "node-a")

	for i := 0; i < 51; i++ {
		g.AddBasin(&Basin{
			Centroid:   core.PseudoEmbedding(fmt.Sprintf("topic-%d", i), cfg.Dim),
			Mass:       1,
			AgentCount: 1,
			TopicLabel: fmt.Sprintf("topic-%d", i),
		})
	}

	assert.LessOrEqual(t, g.Size(), 50, "forced merging must hold the ceiling")
	assert.InDelta(t, 51.0, g.TotalMass(), 1e-9, "forced merging must conserve mass")
}

func TestSplitBasinConservesMassAndPartitionsAgents(t *testing.T) {
	g := newTestRouter(smallConfig(), "node-a")
	g.AddBasin(basin("big", []float64{1, 0, 0, 0}, 3, 7))

	lo, hi, err := g.SplitBasin("big")
	require.NoError(t, err)

	assert.InDelta(t, 1.5, lo.Mass, 1e-9)
	assert.InDelta(t, 1.5, hi.Mass, 1e-9)
	assert.Equal(t, 7, lo.AgentCount+hi.AgentCount, "floor+ceiling must sum to the original count")
	assert.Equal(t, 3, lo.AgentCount)
	assert.Equal(t, 4, hi.AgentCount)

	_, ok := g.Basin("big")
	assert.False(t, ok, "original basin is discarded")
	assert.InDelta(t, 3.0, g.TotalMass(), 1e-9)

	_, _, err = g.SplitBasin("missing")
	require.ErrorIs(t, err, ErrBasinNotFound)
}

func TestCheckSplit(t *testing.T) {
	cfg := smallConfig()
	cfg.SplitThreshold = 5
	g := newTestRouter(cfg, "node-a")
	g.AddBasin(basin("small", []float64{1, 0}, 1, 5))
	g.AddBasin(basin("crowded", []float64{0, 1}, 1, 6))

	assert.False(t, g.CheckSplit("small"))
	assert.True(t, g.CheckSplit("crowded"))
	assert.False(t, g.CheckSplit("missing"))
}

func TestRouteToBasin(t *testing.T) {
	g := newTestRouter(smallConfig(), "node-a")

	_, ok := g.RouteToBasin([]float64{1, 0})
	assert.False(t, ok, "no basins: no route")

	g.AddBasin(basin("east", []float64{1, 0}, 1, 0))
	g.AddBasin(basin("north", []float64{0, 1}, 1, 0))

	got, ok := g.RouteToBasin([]float64{0.9, 0.1})
	require.True(t, ok)
	assert.Equal(t, "east", got.ID)
}

func TestMergeSimilarBasinsRespectsThreshold(t *testing.T) {
	g := newTestRouter(smallConfig(), "node-a")
	g.AddBasin(basin("a", []float64{1, 0}, 1, 1))
	g.AddBasin(basin("b", []float64{0.99, 0.01}, 1, 1)) // nearly parallel to a
	g.AddBasin(basin("c", []float64{0, 1}, 1, 1))       // orthogonal

	merges := g.MergeSimilarBasins(0.95)
	assert.Equal(t, 1, merges)
	assert.Equal(t, 2, g.Size())
	assert.InDelta(t, 3.0, g.TotalMass(), 1e-9)
}

func TestSeedAgentZeroAttractorsDeterministic(t *testing.T) {
	cfg := smallConfig()
	g1 := newTestRouter(cfg, "node-1")
	g2 := newTestRouter(cfg, "node-2")

	b1 := g1.SeedAgentZeroAttractors([]string{"governance", "research"})
	b2 := g2.SeedAgentZeroAttractors([]string{"governance", "research"})

	require.Len(t, b1, 2)
	assert.Equal(t, b1[0].Centroid, b2[0].Centroid, "same topic must seed the same centroid on every node")
	assert.Equal(t, 0, b1[0].AgentCount)
	assert.Equal(t, 1.0, b1[0].Mass)
}

func TestPayloadIsDeepCopy(t *testing.T) {
	g := newTestRouter(smallConfig(), "node-a")
	g.AddBasin(basin("x", []float64{1, 0}, 2, 1))

	snap := g.Payload()
	require.Len(t, snap.Basins, 1)
	assert.Equal(t, "node-a", snap.NodeID)

	snap.Basins[0].Centroid[0] = 42
	live, _ := g.Basin("x")
	assert.Equal(t, 1.0, live.Centroid[0], "mutating a snapshot must not touch live state")
}

func TestBasinMergeNotifications(t *testing.T) {
	bus := core.NewBus()
	var topics []core.Topic
	bus.SubscribeAll(func(n core.Notification) error {
		topics = append(topics, n.Topic)
		return nil
	})

	g := New(func(o *Options) {
		o.Config = smallConfig()
		o.Bus = bus
		o.Rand = rand.New(rand.NewSource(1))
	})
	g.AddBasin(basin("shared", []float64{1, 0}, 1, 1))
	g.ReceiveGossip(Snapshot{NodeID: "peer", Timestamp: time.Unix(1, 0), Basins: []*Basin{
		basin("shared", []float64{1, 0}, 1, 1),
		basin("new", []float64{0, 1}, 1, 1),
	}})

	assert.Contains(t, topics, core.TopicBasinMerged)
	assert.Contains(t, topics, core.TopicBasinAdopted)
}
