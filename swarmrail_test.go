package swarmrail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrail/swarmrail/absorb"
	"github.com/swarmrail/swarmrail/core"
	"github.com/swarmrail/swarmrail/gossip"
	"github.com/swarmrail/swarmrail/router"
)

func TestSubstrateDefaults(t *testing.T) {
	s := New()
	require.NotNil(t, s.Coherence())
	require.NotNil(t, s.Gossip())
	require.NotNil(t, s.Absorb())
	require.NotNil(t, s.Registry())
	assert.Same(t, s.Router(), s.Gossip().Local(), "the gossip layer wraps the substrate router")
	assert.Greater(t, s.Registry().Size(), 0, "default registry carries the built-in catalog")
}

func TestSubstrateTickAndObservers(t *testing.T) {
	s := New()
	s.RegisterObserver("obs-1", "Zephyr")

	res := s.Tick()
	assert.Equal(t, 1.0, res.Coherence, "a lone oscillator is perfectly coherent")
	require.Len(t, res.Phases, 1)

	// Registration also enters the agent into the admission pipeline.
	c, ok := s.Absorb().Candidate("obs-1")
	require.True(t, ok)
	assert.Equal(t, absorb.StageObserved, c.Stage)

	assert.True(t, s.RemoveObserver("obs-1"))
	assert.False(t, s.RemoveObserver("obs-1"))
	assert.Equal(t, 0.0, s.Tick().Coherence)
}

func TestSubstrateRouting(t *testing.T) {
	s := New()
	msg := []float64{1, 0, 0, 0}
	candidates := []router.Candidate{
		{AgentID: "a", Attractor: []float64{1, 0, 0, 0}},
		{AgentID: "b", Attractor: []float64{0, 1, 0, 0}},
	}

	got, err := s.Route(msg, candidates)
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, got.AgentID)

	landscape, err := s.EnergyLandscape(msg, candidates)
	require.NoError(t, err)
	var sum float64
	for _, e := range landscape {
		sum += e.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	_, err = s.Route(msg, nil)
	require.ErrorIs(t, err, router.ErrNoCandidates)
}

func TestSubstrateGossipRoundTrip(t *testing.T) {
	a := New(func(o *Options) { o.NodeID = "node-a" })
	b := New(func(o *Options) { o.NodeID = "node-b" })

	a.Gossip().SeedAgentZeroAttractors([]string{"research", "governance"})
	require.Equal(t, 2, a.Gossip().Size())

	payload := a.GossipPayload()
	assert.Equal(t, "node-a", payload.NodeID)

	b.ReceiveGossip(payload)
	assert.Equal(t, 2, b.Gossip().Size(), "peer adopts unknown basins")
	assert.InDelta(t, a.Gossip().TotalMass(), b.Gossip().TotalMass(), 1e-9)
}

func TestSubstrateStageNotifications(t *testing.T) {
	identity := []float64{1, 0, 0, 0}
	s := New(func(o *Options) { o.IdentityCentroid = identity })

	var topics []core.Topic
	s.Subscribe(core.TopicStageChanged, func(n core.Notification) error {
		topics = append(topics, n.Topic)
		return nil
	})

	s.Absorb().Observe("agent-1", "Zephyr")
	for i := 0; i < 2; i++ {
		_, err := s.Absorb().RecordInteraction("agent-1", identity)
		require.NoError(t, err)
	}

	require.NotEmpty(t, topics, "stage promotion must notify subscribers")
	assert.Equal(t, core.TopicStageChanged, topics[0])
}

func TestSubstrateConfigOverrides(t *testing.T) {
	gcfg := gossip.DefaultConfig
	gcfg.MaxBasins = 3
	s := New(func(o *Options) {
		o.GossipConfig = gcfg
	})

	for i := 0; i < 5; i++ {
		s.Gossip().AddBasin(&gossip.Basin{
			Centroid:   core.PseudoEmbedding(time.Now().String()+string(rune('a'+i)), 16),
			Mass:       1,
			TopicLabel: "t",
		})
	}
	assert.LessOrEqual(t, s.Gossip().Size(), 3)
	assert.InDelta(t, 5.0, s.Gossip().TotalMass(), 1e-9)
}
