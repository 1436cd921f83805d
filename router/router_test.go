package router

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrail/swarmrail/registry"
)

func newTestRouter(cfg Config, seed int64, optFns ...func(o *Options)) *Router {
	fns := append([]func(o *Options){func(o *Options) {
		o.Config = cfg
		o.Rand = rand.New(rand.NewSource(seed))
	}}, optFns...)
	return New(fns...)
}

func testCandidates() []Candidate {
	return []Candidate{
		{AgentID: "aligned", Attractor: []float64{1, 0, 0, 0}, Load: 0.1, Coherence: 0.9},
		{AgentID: "orthogonal", Attractor: []float64{0, 1, 0, 0}, Load: 0.9, Coherence: 0.1},
		{AgentID: "opposed", Attractor: []float64{-1, 0, 0, 0}, Load: 0.5, Coherence: 0.5},
	}
}

func TestRouteZeroCandidatesIsError(t *testing.T) {
	r := newTestRouter(DefaultConfig, 1)
	_, err := r.Route([]float64{1, 0, 0, 0}, nil)
	require.ErrorIs(t, err, ErrNoCandidates)

	_, err = r.EnergyLandscape([]float64{1, 0, 0, 0}, []Candidate{})
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestRouteSingleCandidateShortcut(t *testing.T) {
	r := newTestRouter(DefaultConfig, 1)
	// Attractor dimension deliberately mismatched: the shortcut must not
	// compute any energy.
	only := Candidate{AgentID: "solo", Attractor: []float64{1}}
	got, err := r.Route([]float64{1, 0, 0, 0}, []Candidate{only})
	require.NoError(t, err)
	assert.Equal(t, "solo", got.AgentID)
}

func TestProbabilitiesSumToOne(t *testing.T) {
	cfg := DefaultConfig
	cfg.Temperature = 0 // at/below floor: floored, never divides by zero
	r := newTestRouter(cfg, 1)

	landscape, err := r.EnergyLandscape([]float64{1, 0, 0, 0}, testCandidates())
	require.NoError(t, err)

	var sum float64
	for _, e := range landscape {
		sum += e.Probability
		assert.GreaterOrEqual(t, e.Probability, 0.0)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestProbabilitiesSumToOneExtremeEnergies(t *testing.T) {
	cfg := DefaultConfig
	cfg.LoadWeight = 1e6 // blow up the energy scale
	r := newTestRouter(cfg, 1)

	landscape, err := r.EnergyLandscape([]float64{1, 0, 0, 0}, testCandidates())
	require.NoError(t, err)

	var sum float64
	for _, e := range landscape {
		require.False(t, math.IsNaN(e.Probability), "softmax must stay finite")
		sum += e.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestLowTemperatureExploits(t *testing.T) {
	cfg := DefaultConfig
	cfg.Temperature = cfg.MinTemperature
	r := newTestRouter(cfg, 7)

	msg := []float64{1, 0, 0, 0}
	for i := 0; i < 100; i++ {
		got, err := r.Route(msg, testCandidates())
		require.NoError(t, err)
		assert.Equal(t, "aligned", got.AgentID, "near-zero temperature must exploit the energy minimum")
	}
}

func TestDimensionMismatchPropagates(t *testing.T) {
	r := newTestRouter(DefaultConfig, 1)
	_, err := r.Route([]float64{1, 0}, testCandidates())
	require.Error(t, err)
}

func TestAnnealingSchedules(t *testing.T) {
	msg := []float64{1, 0, 0, 0}

	t.Run("linear", func(t *testing.T) {
		cfg := DefaultConfig
		cfg.Schedule = ScheduleLinear
		cfg.LinearStep = 0.1
		r := newTestRouter(cfg, 1)
		for i := 0; i < 3; i++ {
			_, err := r.Route(msg, testCandidates())
			require.NoError(t, err)
		}
		assert.InDelta(t, 0.7, r.Temperature(), 1e-9)
	})

	t.Run("exponential_floors", func(t *testing.T) {
		cfg := DefaultConfig
		cfg.Schedule = ScheduleExponential
		cfg.ExponentialRate = 0.1
		r := newTestRouter(cfg, 1)
		for i := 0; i < 10; i++ {
			_, err := r.Route(msg, testCandidates())
			require.NoError(t, err)
		}
		assert.Equal(t, cfg.MinTemperature, r.Temperature())
	})

	t.Run("none_and_adaptive_hold", func(t *testing.T) {
		for _, schedule := range []Schedule{ScheduleNone, ScheduleAdaptive} {
			cfg := DefaultConfig
			cfg.Schedule = schedule
			r := newTestRouter(cfg, 1)
			_, err := r.Route(msg, testCandidates())
			require.NoError(t, err)
			assert.Equal(t, 1.0, r.Temperature(), "schedule %s must not decay internally", schedule)
		}
	})
}

func TestResetRestoresInitialTemperature(t *testing.T) {
	cfg := DefaultConfig
	cfg.Schedule = ScheduleExponential
	r := newTestRouter(cfg, 1)
	for i := 0; i < 5; i++ {
		_, err := r.Route([]float64{1, 0, 0, 0}, testCandidates())
		require.NoError(t, err)
	}
	require.Less(t, r.Temperature(), 1.0)
	r.Reset()
	assert.Equal(t, 1.0, r.Temperature())
}

func TestRegistryIdentityBlending(t *testing.T) {
	msg := []float64{1, 0, 0, 0}

	reg := registry.New()
	reg.Register(registry.ModelEntry{
		ID:                "perfect-fit",
		IdentityEmbedding: []float64{1, 0, 0, 0},
	})

	bare := newTestRouter(DefaultConfig, 1)
	blended := newTestRouter(DefaultConfig, 1, func(o *Options) { o.Registry = reg })

	withModel := []Candidate{
		{AgentID: "a", Attractor: []float64{0, 1, 0, 0}, ModelID: "perfect-fit"},
		{AgentID: "b", Attractor: []float64{0, 1, 0, 0}},
	}

	plain, err := bare.EnergyLandscape(msg, withModel)
	require.NoError(t, err)
	resolved, err := blended.EnergyLandscape(msg, withModel)
	require.NoError(t, err)

	// Without a registry the ModelID is inert; with one, the aligned model
	// identity lowers the candidate's energy by the model weight.
	assert.InDelta(t, plain["a"].Energy, plain["b"].Energy, 1e-12)
	assert.InDelta(t, resolved["a"].Energy, resolved["b"].Energy-DefaultConfig.ModelWeight, 1e-9)
}
