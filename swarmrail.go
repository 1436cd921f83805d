// Package swarmrail provides a high-level façade over the four coordination
// subsystems (phase synchronization, thermodynamic routing, distributed
// attractor-basin gossip and the staged-trust admission pipeline) enabling
// rapid construction of
// self-coordinating agent swarms. Most hosts interact with this package by:
//  1. Creating a Substrate via New() (optionally overriding per-subsystem configs)
//  2. Registering observers and seeding attractor basins
//  3. Driving Tick and gossip exchange from their own scheduler, and feeding
//     routing/absorption events in as they occur
//
// The façade wires a shared notification bus, logger and model registry into
// every subsystem while keeping setup ergonomics concise. All defaults are
// safe for local development and testing; the substrate performs no network
// or disk I/O itself and relies on the host for transport, persistence and
// credential handling.
package swarmrail

import (
	"github.com/swarmrail/swarmrail/absorb"
	"github.com/swarmrail/swarmrail/coherence"
	"github.com/swarmrail/swarmrail/core"
	"github.com/swarmrail/swarmrail/gossip"
	"github.com/swarmrail/swarmrail/logging"
	"github.com/swarmrail/swarmrail/registry"
	"github.com/swarmrail/swarmrail/router"
)

// Options configures the Substrate instance.
type Options struct {
	// CoherenceConfig tunes the oscillator engine.
	CoherenceConfig coherence.Config

	// RouterConfig tunes the thermodynamic router's energy weights and
	// annealing schedule.
	RouterConfig router.Config

	// GossipConfig tunes basin capacity, merging and splitting.
	GossipConfig gossip.Config

	// AbsorbConfig tunes the staged-trust admission thresholds.
	AbsorbConfig absorb.Config

	// NodeID identifies this node in gossip snapshots. Defaults to a
	// fresh UUID.
	NodeID string

	// IdentityCentroid is the swarm identity vector interactions are
	// scored against. Defaults to a deterministic pseudo-embedding.
	IdentityCentroid []float64

	// Registry resolves model identities for routing. Defaults to the
	// built-in provider catalog (NewWithDefaults).
	Registry *registry.Registry

	// Bus carries stage-change and basin notifications to subscribers.
	// Defaults to a fresh bus shared by all subsystems.
	Bus *core.Bus

	// Logger defaults to NoOp if nil.
	Logger logging.Logger
}

// Substrate aggregates the coordination subsystems behind one instance. It
// is synchronous throughout: an external scheduler drives Tick and gossip
// exchange on their own cadences and calls the routing and absorption verbs
// per event. Nothing here spawns background work.
type Substrate struct {
	opts Options

	coherence *coherence.Engine
	gossip    *gossip.Router
	absorb    *absorb.Machine
	registry  *registry.Registry
	bus       *core.Bus
}

// New creates a Substrate with optional overrides. Any unset collaborator is
// initialized with a default implementation.
func New(optFns ...func(o *Options)) *Substrate {
	opts := Options{
		CoherenceConfig: coherence.DefaultConfig,
		RouterConfig:    router.DefaultConfig,
		GossipConfig:    gossip.DefaultConfig,
		AbsorbConfig:    absorb.DefaultConfig,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Registry == nil {
		opts.Registry = registry.NewWithDefaults()
	}
	if opts.Bus == nil {
		opts.Bus = core.NewBus()
	}

	eng := coherence.New(func(o *coherence.Options) {
		o.Config = opts.CoherenceConfig
		o.Logger = opts.Logger
	})
	thermo := router.New(func(o *router.Options) {
		o.Config = opts.RouterConfig
		o.Registry = opts.Registry
		o.Logger = opts.Logger
	})
	g := gossip.New(func(o *gossip.Options) {
		o.Config = opts.GossipConfig
		o.NodeID = opts.NodeID
		o.Local = thermo
		o.Bus = opts.Bus
		o.Logger = opts.Logger
	})
	machine := absorb.New(func(o *absorb.Options) {
		o.Config = opts.AbsorbConfig
		o.IdentityCentroid = opts.IdentityCentroid
		o.Bus = opts.Bus
		o.Logger = opts.Logger
	})

	return &Substrate{
		opts:      opts,
		coherence: eng,
		gossip:    g,
		absorb:    machine,
		registry:  opts.Registry,
		bus:       opts.Bus,
	}
}

// Coherence returns the oscillator engine for direct access.
func (s *Substrate) Coherence() *coherence.Engine { return s.coherence }

// Gossip returns the distributed gossip router for direct access.
func (s *Substrate) Gossip() *gossip.Router { return s.gossip }

// Router returns the local thermodynamic router wrapped by the gossip layer.
func (s *Substrate) Router() *router.Router { return s.gossip.Local() }

// Absorb returns the staged-trust machine for direct access.
func (s *Substrate) Absorb() *absorb.Machine { return s.absorb }

// Registry returns the model registry.
func (s *Substrate) Registry() *registry.Registry { return s.registry }

// Subscribe registers a listener for a notification topic. An error from
// one listener never blocks delivery to the others.
func (s *Substrate) Subscribe(topic core.Topic, fn core.Listener) {
	s.bus.Subscribe(topic, fn)
}

// RegisterObserver adds an oscillator for the observer and records first
// contact with its owning agent in the admission pipeline.
func (s *Substrate) RegisterObserver(observerID, agentName string) {
	s.coherence.AddOscillator(observerID, agentName)
	s.absorb.Observe(observerID, agentName)
}

// RemoveObserver drops the observer's oscillator, reporting whether it existed.
func (s *Substrate) RemoveObserver(observerID string) bool {
	return s.coherence.RemoveOscillator(observerID)
}

// Tick advances the oscillator swarm one scheduler interval.
func (s *Substrate) Tick() coherence.TickResult { return s.coherence.Tick() }

// Route selects a destination agent for a message embedding.
func (s *Substrate) Route(message []float64, candidates []router.Candidate) (*router.Candidate, error) {
	return s.gossip.RouteMessage(message, candidates)
}

// EnergyLandscape exposes per-candidate energies and probabilities without
// committing to a routing decision.
func (s *Substrate) EnergyLandscape(message []float64, candidates []router.Candidate) (map[string]router.Energy, error) {
	return s.gossip.Local().EnergyLandscape(message, candidates)
}

// GossipPayload builds the snapshot to send to peers this round.
func (s *Substrate) GossipPayload() gossip.Snapshot { return s.gossip.Payload() }

// ReceiveGossip folds a peer snapshot into local basin state.
func (s *Substrate) ReceiveGossip(snapshot gossip.Snapshot) { s.gossip.ReceiveGossip(snapshot) }
