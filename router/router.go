package router

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/swarmrail/swarmrail/core"
	"github.com/swarmrail/swarmrail/logging"
	"github.com/swarmrail/swarmrail/registry"
)

// ErrNoCandidates is returned when Route or EnergyLandscape is called with an
// empty candidate slice. Routing nowhere is a caller contract violation, not
// a recoverable default.
var ErrNoCandidates = fmt.Errorf("no routing candidates")

// Schedule selects how temperature evolves after each routing decision.
type Schedule string

const (
	// ScheduleNone keeps temperature constant.
	ScheduleNone Schedule = "none"
	// ScheduleLinear subtracts a fixed step per decision, floored.
	ScheduleLinear Schedule = "linear"
	// ScheduleExponential multiplies by a decay rate per decision, floored.
	ScheduleExponential Schedule = "exponential"
	// ScheduleAdaptive applies no internal decay; the host drives
	// temperature from coherence readings via SetTemperature.
	ScheduleAdaptive Schedule = "adaptive"
)

// Candidate describes one routable agent for a single decision. Load and
// Coherence are instantaneous readings supplied by the caller; Attractor is
// the agent's semantic position. ModelIdentity (or ModelID resolved through
// an attached registry) is optional and blends the backing model's identity
// into the energy.
type Candidate struct {
	AgentID       string
	Load          float64
	Coherence     float64
	Attractor     []float64
	ModelIdentity []float64
	ModelID       string
}

// Energy pairs a candidate's energy with its share of the Boltzmann
// distribution for one landscape evaluation.
type Energy struct {
	Energy      float64
	Probability float64
}

// Config defines the energy weights and annealing behavior of a Router.
type Config struct {
	// Temperature is the starting Boltzmann temperature.
	Temperature float64

	// MinTemperature floors the temperature to keep the distribution
	// finite and non-degenerate.
	MinTemperature float64

	// SemanticWeight scales the semantic distance term (1 − cos).
	SemanticWeight float64

	// LoadWeight scales the load penalty.
	LoadWeight float64

	// CoherenceWeight scales the coherence reward (subtracted).
	CoherenceWeight float64

	// ModelWeight scales the optional model-identity reward (subtracted).
	ModelWeight float64

	// Schedule selects the annealing behavior after each decision.
	Schedule Schedule

	// LinearStep is the per-decision temperature decrement for ScheduleLinear.
	LinearStep float64

	// ExponentialRate is the per-decision multiplier for ScheduleExponential.
	ExponentialRate float64
}

// DefaultConfig provides a balanced exploration/exploitation starting point.
var DefaultConfig = Config{
	Temperature:     1.0,
	MinTemperature:  0.01,
	SemanticWeight:  1.0,
	LoadWeight:      0.5,
	CoherenceWeight: 0.3,
	ModelWeight:     0.4,
	Schedule:        ScheduleNone,
	LinearStep:      0.001,
	ExponentialRate: 0.995,
}

// Options configures a Router instance using the functional options pattern.
type Options struct {
	// Config holds weights and annealing parameters. Defaults to DefaultConfig.
	Config Config

	// Registry optionally resolves Candidate.ModelID into an identity
	// embedding when the candidate carries no explicit ModelIdentity.
	Registry *registry.Registry

	// Logger defaults to NoOp if nil.
	Logger logging.Logger

	// Rand is the sampling source. Defaults to a time-seeded source;
	// tests inject a fixed seed for reproducible draws.
	Rand *rand.Rand
}

// Router selects a destination agent per message via a Boltzmann
// distribution over candidate energies. It is synchronous and keeps no
// per-message state beyond the annealed temperature.
type Router struct {
	cfg      Config
	initial  Config
	registry *registry.Registry
	logger   logging.Logger
	rng      *rand.Rand
}

// New creates a Router with optional overrides.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Router{
		cfg:      opts.Config,
		initial:  opts.Config,
		registry: opts.Registry,
		logger:   opts.Logger,
		rng:      opts.Rand,
	}
}

// Temperature returns the current (floored) Boltzmann temperature.
func (r *Router) Temperature() float64 {
	return math.Max(r.cfg.Temperature, r.cfg.MinTemperature)
}

// SetTemperature overrides the temperature; values below the floor are
// raised to it at use time. Intended for the adaptive schedule, where an
// external controller maps swarm coherence onto exploration pressure.
func (r *Router) SetTemperature(t float64) { r.cfg.Temperature = t }

// Reset restores the initial configuration, discarding annealing progress.
func (r *Router) Reset() { r.cfg = r.initial }

// Route samples one candidate from the Boltzmann distribution over the
// candidates' energies, then applies the annealing schedule. A single
// candidate is returned immediately with no energy computation; zero
// candidates is an error the caller must handle explicitly.
func (r *Router) Route(message []float64, candidates []Candidate) (*Candidate, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if len(candidates) == 1 {
		r.anneal()
		return &candidates[0], nil
	}

	probs, _, err := r.distribution(message, candidates)
	if err != nil {
		return nil, err
	}

	// Cumulative-probability draw against one uniform sample.
	u := r.rng.Float64()
	cum := 0.0
	selected := len(candidates) - 1
	for i, p := range probs {
		cum += p
		if u <= cum {
			selected = i
			break
		}
	}

	r.logger.Debug("route selected agent_id=%s probability=%.4f temperature=%.4f candidates=%d",
		candidates[selected].AgentID, probs[selected], r.Temperature(), len(candidates))

	r.anneal()
	return &candidates[selected], nil
}

// EnergyLandscape evaluates every candidate's energy and probability without
// sampling or annealing. Useful for observability and external decision-making.
func (r *Router) EnergyLandscape(message []float64, candidates []Candidate) (map[string]Energy, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	probs, energies, err := r.distribution(message, candidates)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Energy, len(candidates))
	for i, c := range candidates {
		out[c.AgentID] = Energy{Energy: energies[i], Probability: probs[i]}
	}
	return out, nil
}

// distribution computes per-candidate energies and their softmax under the
// current temperature. Max-subtraction keeps the exponentials finite for any
// energy scale.
func (r *Router) distribution(message []float64, candidates []Candidate) (probs, energies []float64, err error) {
	energies = make([]float64, len(candidates))
	for i := range candidates {
		e, err := r.energy(message, &candidates[i])
		if err != nil {
			return nil, nil, err
		}
		energies[i] = e
	}

	t := r.Temperature()
	// p_i ∝ exp(−E_i/T): negate, stabilize, exponentiate, normalize.
	maxLogit := math.Inf(-1)
	logits := make([]float64, len(energies))
	for i, e := range energies {
		logits[i] = -e / t
		maxLogit = math.Max(maxLogit, logits[i])
	}
	probs = make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, energies, nil
}

// energy evaluates E = semantic·(1 − cos(msg, attractor)) + load·Load −
// coherence·Coherence − model·cos(msg, identity). Lower is more likely.
func (r *Router) energy(message []float64, c *Candidate) (float64, error) {
	semantic, err := core.Cosine(message, c.Attractor)
	if err != nil {
		return 0, fmt.Errorf("candidate %s attractor: %w", c.AgentID, err)
	}

	e := r.cfg.SemanticWeight*(1-semantic) +
		r.cfg.LoadWeight*c.Load -
		r.cfg.CoherenceWeight*c.Coherence

	identity := c.ModelIdentity
	if identity == nil && c.ModelID != "" && r.registry != nil {
		if entry, ok := r.registry.Get(c.ModelID); ok {
			identity = entry.IdentityEmbedding
		}
	}
	if identity != nil {
		modelSim, err := core.Cosine(message, identity)
		if err != nil {
			return 0, fmt.Errorf("candidate %s model identity: %w", c.AgentID, err)
		}
		e -= r.cfg.ModelWeight * modelSim
	}
	return e, nil
}

// anneal advances the temperature per the configured schedule.
func (r *Router) anneal() {
	switch r.cfg.Schedule {
	case ScheduleLinear:
		r.cfg.Temperature = math.Max(r.cfg.MinTemperature, r.cfg.Temperature-r.cfg.LinearStep)
	case ScheduleExponential:
		r.cfg.Temperature = math.Max(r.cfg.MinTemperature, r.cfg.Temperature*r.cfg.ExponentialRate)
	case ScheduleNone, ScheduleAdaptive:
		// ScheduleAdaptive leaves temperature to SetTemperature.
	}
}
