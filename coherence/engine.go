package coherence

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/swarmrail/swarmrail/logging"
)

const twoPi = 2 * math.Pi

// ErrOscillatorNotFound is returned when an operation references an
// oscillator id that is not registered.
var ErrOscillatorNotFound = fmt.Errorf("oscillator not found")

// Config defines tuning parameters for the coherence engine.
type Config struct {
	// BaseFrequency is the natural frequency (rad/s) every new oscillator
	// is perturbed from. Identical frequencies synchronize fastest.
	BaseFrequency float64

	// FrequencyVariance is the maximum absolute perturbation applied to
	// BaseFrequency at oscillator creation. The perturbed frequency is
	// fixed for the oscillator's lifetime.
	FrequencyVariance float64

	// CouplingStrength is the Kuramoto coupling constant K, clamped to
	// [0, 2]. Zero decouples the swarm entirely.
	CouplingStrength float64

	// CoherenceThreshold is the order-parameter target below which
	// NeedsIntervention reports true and stall detection engages.
	CoherenceThreshold float64

	// StallMinDelta is the minimum per-tick coherence improvement that
	// counts as progress while below the threshold.
	StallMinDelta float64

	// StallTickLimit is the number of consecutive stalled ticks tolerated
	// before the engine force-synchronizes the swarm.
	StallTickLimit int

	// StallIntervention gates the automatic stall handler. Disabled, the
	// engine only ever reports low coherence via NeedsIntervention and
	// leaves recovery to the caller.
	StallIntervention bool

	// SampleCap bounds the coherence history ring used for rolling stats.
	SampleCap int
}

// DefaultConfig provides working defaults for a ~60 Hz tick cadence.
var DefaultConfig = Config{
	BaseFrequency:      1.0,
	FrequencyVariance:  0.1,
	CouplingStrength:   0.5,
	CoherenceThreshold: 0.7,
	StallMinDelta:      0.001,
	StallTickLimit:     120,
	StallIntervention:  true,
	SampleCap:          1000,
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Config contains the numeric tuning parameters. Defaults to
	// DefaultConfig if not specified.
	Config Config

	// Logger defaults to NoOp if nil.
	Logger logging.Logger

	// Clock supplies the current time for tick intervals. Defaults to
	// time.Now; tests inject a fake clock for deterministic integration.
	Clock func() time.Time

	// Rand is the source for frequency perturbation and initial phases.
	// Defaults to a time-seeded source.
	Rand *rand.Rand
}

// Oscillator is the per-observer phase state. Phase stays wrapped to
// [0, 2π); NaturalFrequency is fixed at creation and never recomputed.
type Oscillator struct {
	ID               string
	NaturalFrequency float64
	Phase            float64
	OwnerRef         string
}

// TickResult carries the outcome of one integration step.
type TickResult struct {
	Coherence  float64
	Phases     map[string]float64
	Intervened bool
}

// Engine owns the oscillator collection and advances it under the Kuramoto
// model dθ_i/dt = ω_i + (K/N)·Σ_j sin(θ_j − θ_i), integrated with explicit
// Euler over the elapsed wall-clock interval.
type Engine struct {
	cfg    Config
	logger logging.Logger
	clock  func() time.Time
	rng    *rand.Rand

	oscillators map[string]*Oscillator
	samples     *sampleRing

	lastTick      time.Time
	lastCoherence float64
	stallTicks    int
}

// New creates a coherence engine with optional overrides.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		cfg:         opts.Config,
		logger:      opts.Logger,
		clock:       opts.Clock,
		rng:         opts.Rand,
		oscillators: make(map[string]*Oscillator),
		samples:     newSampleRing(opts.Config.SampleCap),
	}
}

// AddOscillator registers an oscillator for the given observer. The natural
// frequency is perturbed once from the base frequency; the initial phase is
// uniform over [0, 2π). Re-registering an id replaces the oscillator.
func (e *Engine) AddOscillator(id, ownerRef string) *Oscillator {
	osc := &Oscillator{
		ID:               id,
		NaturalFrequency: e.cfg.BaseFrequency + (e.rng.Float64()*2-1)*e.cfg.FrequencyVariance,
		Phase:            e.rng.Float64() * twoPi,
		OwnerRef:         ownerRef,
	}
	e.oscillators[id] = osc
	return osc
}

// RemoveOscillator deletes the oscillator for id, reporting whether it existed.
func (e *Engine) RemoveOscillator(id string) bool {
	if _, ok := e.oscillators[id]; !ok {
		return false
	}
	delete(e.oscillators, id)
	return true
}

// SetPhase pins an oscillator to an explicit phase (wrapped to [0, 2π)).
func (e *Engine) SetPhase(id string, phase float64) error {
	osc, ok := e.oscillators[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOscillatorNotFound, id)
	}
	osc.Phase = wrapPhase(phase)
	return nil
}

// Size returns the number of registered oscillators.
func (e *Engine) Size() int { return len(e.oscillators) }

// SetCouplingStrength updates K, clamped to [0, 2].
func (e *Engine) SetCouplingStrength(k float64) {
	e.cfg.CouplingStrength = math.Min(2, math.Max(0, k))
}

// CouplingStrength returns the current coupling constant.
func (e *Engine) CouplingStrength() float64 { return e.cfg.CouplingStrength }

// Tick advances every phase over the interval since the previous tick and
// returns the resulting coherence and phase map. The first tick establishes
// the time base without integrating. Degenerate populations (zero or one
// oscillator) are defined special cases, never an error.
func (e *Engine) Tick() TickResult {
	now := e.clock()
	dt := 0.0
	if !e.lastTick.IsZero() {
		dt = now.Sub(e.lastTick).Seconds()
	}
	e.lastTick = now

	if dt > 0 && len(e.oscillators) > 0 {
		e.integrate(dt)
	}

	r := e.Coherence()
	e.samples.push(r)

	intervened := false
	if e.cfg.StallIntervention && len(e.oscillators) > 1 && r < e.cfg.CoherenceThreshold {
		if r-e.lastCoherence < e.cfg.StallMinDelta {
			e.stallTicks++
		} else {
			e.stallTicks = 0
		}
		if e.stallTicks >= e.cfg.StallTickLimit {
			e.ForceSynchronize()
			e.stallTicks = 0
			intervened = true
			r = e.Coherence()
			e.logger.Info("coherence stall intervention applied coherence=%.3f oscillators=%d", r, len(e.oscillators))
		}
	} else {
		e.stallTicks = 0
	}
	e.lastCoherence = r

	return TickResult{Coherence: r, Phases: e.Phases(), Intervened: intervened}
}

// integrate applies one explicit Euler step of length dt seconds. The
// coupling sum is evaluated against a snapshot of the pre-step phases.
func (e *Engine) integrate(dt float64) {
	n := float64(len(e.oscillators))
	k := e.cfg.CouplingStrength

	snapshot := make([]float64, 0, len(e.oscillators))
	for _, osc := range e.oscillators {
		snapshot = append(snapshot, osc.Phase)
	}

	for _, osc := range e.oscillators {
		coupling := 0.0
		for _, theta := range snapshot {
			coupling += math.Sin(theta - osc.Phase)
		}
		dTheta := osc.NaturalFrequency + (k/n)*coupling
		osc.Phase = wrapPhase(osc.Phase + dTheta*dt)
	}
}

// Coherence computes the Kuramoto order parameter r = |Σ e^{iθ_j}| / N.
// Zero oscillators yield 0; a single oscillator yields exactly 1.
func (e *Engine) Coherence() float64 {
	n := len(e.oscillators)
	if n == 0 {
		return 0
	}
	var sumSin, sumCos float64
	for _, osc := range e.oscillators {
		sumSin += math.Sin(osc.Phase)
		sumCos += math.Cos(osc.Phase)
	}
	r := math.Hypot(sumSin, sumCos) / float64(n)
	if r > 1 {
		r = 1 // float noise on aligned phases
	}
	return r
}

// MeanPhase returns the circular mean of all phases in [0, 2π), or 0 when
// the swarm is empty.
func (e *Engine) MeanPhase() float64 {
	if len(e.oscillators) == 0 {
		return 0
	}
	var sumSin, sumCos float64
	for _, osc := range e.oscillators {
		sumSin += math.Sin(osc.Phase)
		sumCos += math.Cos(osc.Phase)
	}
	return wrapPhase(math.Atan2(sumSin, sumCos))
}

// NeedsIntervention reports whether the latest coherence sits below the
// configured threshold. Exposed for external alerting in addition to the
// automatic stall handler.
func (e *Engine) NeedsIntervention() bool {
	return e.Coherence() < e.cfg.CoherenceThreshold
}

// ForceSynchronize nudges every oscillator 50% of the way toward the mean
// phase along the shortest arc, breaking low-coherence equilibria.
func (e *Engine) ForceSynchronize() {
	mean := e.MeanPhase()
	for _, osc := range e.oscillators {
		diff := wrapPhase(mean-osc.Phase+math.Pi) - math.Pi
		osc.Phase = wrapPhase(osc.Phase + 0.5*diff)
	}
}

// Phases returns a copy of the current phase map keyed by oscillator id.
func (e *Engine) Phases() map[string]float64 {
	out := make(map[string]float64, len(e.oscillators))
	for id, osc := range e.oscillators {
		out[id] = osc.Phase
	}
	return out
}

// SampleStats returns rolling statistics over the bounded coherence history.
func (e *Engine) SampleStats() Stats { return e.samples.stats() }

func wrapPhase(theta float64) float64 {
	m := math.Mod(theta, twoPi)
	if m < 0 {
		m += twoPi
	}
	return m
}
