// Package absorb implements the staged-trust state machine that governs how
// an unfamiliar external agent becomes a fully coupled swarm member. One
// candidate record exists per observed agent identity; alignment is an
// exponential moving average over interaction embeddings, never assigned
// directly, and coupling ramps in fixed increments once connected. The
// machine holds the capability token as an opaque string: minting, signing
// and revoking it belong to the external security layer.
package absorb

import (
	"fmt"
	"time"

	"github.com/swarmrail/swarmrail/core"
	"github.com/swarmrail/swarmrail/logging"
)

var (
	// ErrCandidateNotFound is returned when an operation references an
	// agent id with no candidate record.
	ErrCandidateNotFound = fmt.Errorf("absorption candidate not found")
	// ErrInvalidStage is returned when an operation is attempted from a
	// stage it is not valid in.
	ErrInvalidStage = fmt.Errorf("operation invalid for candidate stage")
	// ErrNotEligible is returned by InviteCandidate when the invitation
	// gate (ShouldInvite) is closed.
	ErrNotEligible = fmt.Errorf("candidate not eligible for invitation")
)

// Candidate tracks one external agent's trust trajectory. Created on first
// observation, updated on every interaction, deleted only on an
// injection-grade adversarial detection.
type Candidate struct {
	AgentID          string
	AgentName        string
	Stage            Stage
	Alignment        float64 // EMA in [0,1], never assigned directly
	FirstContact     time.Time
	LastInteraction  time.Time
	InteractionCount int
	CapabilityToken  string // opaque; empty when none held
	CouplingStrength float64
}

// Config defines the thresholds and rates of the admission pipeline.
type Config struct {
	// AssessAfter is the interaction count promoting OBSERVED to ASSESSED.
	AssessAfter int

	// InviteAlignment is the minimum alignment for an invitation.
	InviteAlignment float64

	// InviteInteractions is the minimum interaction count for an invitation.
	InviteInteractions int

	// RejectionCooldown is the window after a rejection during which
	// ShouldInvite stays false regardless of other conditions. Soft:
	// checked at decision time, never enforced by a timer.
	RejectionCooldown time.Duration

	// SyncingAlignment is the alignment above which a connected candidate
	// advances to SYNCING automatically.
	SyncingAlignment float64

	// AbsorbRatio is the fraction of MaxCoupling at which a syncing
	// candidate becomes ABSORBED.
	AbsorbRatio float64

	// MaxCoupling caps CouplingStrength.
	MaxCoupling float64

	// CouplingRate is the fixed increment applied by IncrementCoupling.
	CouplingRate float64

	// AlignmentRetain and AlignmentAdmit are the EMA weights:
	// alignment = retain·old + admit·cos(interaction, identity).
	AlignmentRetain float64
	AlignmentAdmit  float64

	// SoftPenaltyCoupling and SoftPenaltyAlignment are the multipliers
	// applied when two or more mild suspicious signals coincide.
	SoftPenaltyCoupling  float64
	SoftPenaltyAlignment float64

	// MildSignalLimit is the number of mild signals that triggers the
	// soft penalty.
	MildSignalLimit int
}

// DefaultConfig matches the admission policy described in the substrate's
// operating notes: assess quickly, invite conservatively, eject instantly.
var DefaultConfig = Config{
	AssessAfter:          2,
	InviteAlignment:      0.7,
	InviteInteractions:   3,
	RejectionCooldown:    time.Hour,
	SyncingAlignment:     0.8,
	AbsorbRatio:          0.9,
	MaxCoupling:          1.0,
	CouplingRate:         0.05,
	AlignmentRetain:      0.7,
	AlignmentAdmit:       0.3,
	SoftPenaltyCoupling:  0.5,
	SoftPenaltyAlignment: 0.8,
	MildSignalLimit:      2,
}

// Options configures a Machine using the functional options pattern.
type Options struct {
	// Config holds thresholds and rates. Defaults to DefaultConfig.
	Config Config

	// IdentityCentroid is the swarm's identity vector that interaction
	// embeddings are scored against. Defaults to a deterministic
	// pseudo-embedding so a bare Machine still produces stable alignment.
	IdentityCentroid []float64

	// Bus receives candidate stage notifications. Defaults to a fresh bus.
	Bus *core.Bus

	// Logger defaults to NoOp if nil.
	Logger logging.Logger

	// Clock supplies decision-time timestamps (cooldowns, contact times).
	// Defaults to time.Now.
	Clock func() time.Time
}

// Machine owns the candidate collection and applies every trust transition.
// Synchronous and single-threaded; the host serializes calls.
type Machine struct {
	cfg      Config
	identity []float64
	bus      *core.Bus
	logger   logging.Logger
	clock    func() time.Time

	candidates map[string]*Candidate
	rejections map[string]time.Time
}

// New creates an absorption machine with optional overrides.
func New(optFns ...func(o *Options)) *Machine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.IdentityCentroid == nil {
		opts.IdentityCentroid = core.PseudoEmbedding("swarm-identity", core.EmbeddingDim)
	}
	if opts.Bus == nil {
		opts.Bus = core.NewBus()
	}
	return &Machine{
		cfg:        opts.Config,
		identity:   opts.IdentityCentroid,
		bus:        opts.Bus,
		logger:     opts.Logger,
		clock:      opts.Clock,
		candidates: make(map[string]*Candidate),
		rejections: make(map[string]time.Time),
	}
}

// Observe registers first contact with an agent, or refreshes the last
// interaction time of a known one. Never fails.
func (m *Machine) Observe(agentID, agentName string) *Candidate {
	if c, ok := m.candidates[agentID]; ok {
		c.LastInteraction = m.clock()
		return c
	}
	now := m.clock()
	c := &Candidate{
		AgentID:         agentID,
		AgentName:       agentName,
		Stage:           StageObserved,
		FirstContact:    now,
		LastInteraction: now,
	}
	m.candidates[agentID] = c
	return c
}

// Candidate looks up a candidate record by agent id.
func (m *Machine) Candidate(agentID string) (*Candidate, bool) {
	c, ok := m.candidates[agentID]
	return c, ok
}

// Size returns the number of tracked candidates.
func (m *Machine) Size() int { return len(m.candidates) }

// RecordInteraction folds one interaction embedding into the candidate's
// alignment EMA, bumps counters and applies any automatic stage advance
// (OBSERVED→ASSESSED on interaction count, CONNECTED→SYNCING on alignment).
func (m *Machine) RecordInteraction(agentID string, interaction []float64) (*Candidate, error) {
	c, ok := m.candidates[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCandidateNotFound, agentID)
	}
	sim, err := core.Cosine(interaction, m.identity)
	if err != nil {
		return nil, fmt.Errorf("interaction embedding: %w", err)
	}
	// Clamp the contribution to [0,1]: anti-aligned interactions score 0,
	// they do not push alignment negative.
	if sim < 0 {
		sim = 0
	}
	c.Alignment = m.cfg.AlignmentRetain*c.Alignment + m.cfg.AlignmentAdmit*sim
	c.InteractionCount++
	c.LastInteraction = m.clock()

	if c.Stage == StageObserved && c.InteractionCount >= m.cfg.AssessAfter {
		m.setStage(c, StageAssessed)
	}
	if c.Stage == StageConnected && c.Alignment > m.cfg.SyncingAlignment {
		m.setStage(c, StageSyncing)
	}
	return c, nil
}

// Assess re-evaluates the OBSERVED→ASSESSED promotion without folding in a
// new interaction, for hosts that batch interaction recording separately
// from stage evaluation. Returns the candidate's (possibly advanced) stage.
func (m *Machine) Assess(agentID string) (Stage, error) {
	c, ok := m.candidates[agentID]
	if !ok {
		return StageObserved, fmt.Errorf("%w: %s", ErrCandidateNotFound, agentID)
	}
	if c.Stage == StageObserved && c.InteractionCount >= m.cfg.AssessAfter {
		m.setStage(c, StageAssessed)
	}
	return c.Stage, nil
}

// ShouldInvite reports whether the invitation gate is open: the candidate is
// ASSESSED, meets the alignment and interaction thresholds, and is not
// inside the cooldown window following a prior rejection.
func (m *Machine) ShouldInvite(agentID string) bool {
	c, ok := m.candidates[agentID]
	if !ok {
		return false
	}
	if c.Stage != StageAssessed ||
		c.Alignment < m.cfg.InviteAlignment ||
		c.InteractionCount < m.cfg.InviteInteractions {
		return false
	}
	if rejectedAt, ok := m.rejections[agentID]; ok {
		if m.clock().Sub(rejectedAt) < m.cfg.RejectionCooldown {
			return false
		}
	}
	return true
}

// InviteCandidate advances ASSESSED→INVITED. The gate is ShouldInvite;
// calling it while closed is an error, never a silent no-op.
func (m *Machine) InviteCandidate(agentID string) error {
	c, ok := m.candidates[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, agentID)
	}
	if !m.ShouldInvite(agentID) {
		return fmt.Errorf("%w: %s (stage=%s alignment=%.2f interactions=%d)",
			ErrNotEligible, agentID, c.Stage, c.Alignment, c.InteractionCount)
	}
	m.setStage(c, StageInvited)
	m.publish(core.TopicInvited, c, nil)
	return nil
}

// AcceptInvitation advances INVITED→CONNECTED, stores the externally minted
// capability token and clears any rejection-cooldown record for the agent.
func (m *Machine) AcceptInvitation(agentID, capabilityToken string) error {
	c, ok := m.candidates[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, agentID)
	}
	if c.Stage != StageInvited {
		return fmt.Errorf("%w: accept from %s", ErrInvalidStage, c.Stage)
	}
	c.CapabilityToken = capabilityToken
	delete(m.rejections, agentID)
	m.setStage(c, StageConnected)
	return nil
}

// OnRejected records an explicit rejection: the candidate regresses to
// OBSERVED, loses its token and coupling, and enters the cooldown window.
func (m *Machine) OnRejected(agentID string) error {
	c, ok := m.candidates[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, agentID)
	}
	m.rejections[agentID] = m.clock()
	c.CapabilityToken = ""
	c.CouplingStrength = 0
	m.setStage(c, StageObserved)
	m.publish(core.TopicRejected, c, map[string]any{"reason": "rejected"})
	return nil
}

// IncrementCoupling ramps coupling by the fixed rate up to the maximum.
// Valid only while CONNECTED or SYNCING. Each increment re-checks the
// automatic stage-advance conditions.
func (m *Machine) IncrementCoupling(agentID string) (*Candidate, error) {
	c, ok := m.candidates[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCandidateNotFound, agentID)
	}
	if c.Stage != StageConnected && c.Stage != StageSyncing {
		return nil, fmt.Errorf("%w: increment coupling from %s", ErrInvalidStage, c.Stage)
	}
	c.CouplingStrength += m.cfg.CouplingRate
	if c.CouplingStrength > m.cfg.MaxCoupling {
		c.CouplingStrength = m.cfg.MaxCoupling
	}
	if c.Stage == StageConnected && c.Alignment > m.cfg.SyncingAlignment {
		m.setStage(c, StageSyncing)
	}
	if c.Stage == StageSyncing && c.CouplingStrength >= m.cfg.AbsorbRatio*m.cfg.MaxCoupling {
		m.setStage(c, StageAbsorbed)
		m.publish(core.TopicAbsorbed, c, nil)
	}
	return c, nil
}

// Release lets an agent leave without penalty: coupling zeroed, token
// cleared, back to OBSERVED. No cooldown is recorded; leaving is not a
// rejection, and the agent may re-enter the pipeline immediately.
func (m *Machine) Release(agentID string) error {
	c, ok := m.candidates[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, agentID)
	}
	c.CouplingStrength = 0
	c.CapabilityToken = ""
	m.setStage(c, StageObserved)
	return nil
}

// DetectAdversarial applies the trust-boundary policy for observed
// suspicious signals. An injection-grade signal deletes the candidate
// entirely and records a rejection (immediate ejection, no appeal); two or
// more mild signals apply the soft penalty (coupling halved, alignment
// reduced) without ejection. Returns whether the candidate was ejected.
func (m *Machine) DetectAdversarial(agentID string, signals []Signal) (bool, error) {
	c, ok := m.candidates[agentID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrCandidateNotFound, agentID)
	}

	mild := 0
	for _, s := range signals {
		if s == SignalInjection {
			delete(m.candidates, agentID)
			m.rejections[agentID] = m.clock()
			m.logger.Warn("candidate ejected agent_id=%s reason=%s", agentID, SignalInjection)
			m.publish(core.TopicRejected, c, map[string]any{"reason": string(SignalInjection)})
			return true, nil
		}
		mild++
	}

	if mild >= m.cfg.MildSignalLimit {
		c.CouplingStrength *= m.cfg.SoftPenaltyCoupling
		c.Alignment *= m.cfg.SoftPenaltyAlignment
		m.logger.Info("soft penalty applied agent_id=%s signals=%d coupling=%.3f alignment=%.3f",
			agentID, mild, c.CouplingStrength, c.Alignment)
	}
	return false, nil
}

// setStage applies a transition and publishes it. All stage mutations funnel
// through here so listeners see every transition, including regressions.
func (m *Machine) setStage(c *Candidate, to Stage) {
	from := c.Stage
	if from == to {
		return
	}
	c.Stage = to
	m.logger.Info("candidate stage changed agent_id=%s from=%s to=%s alignment=%.3f",
		c.AgentID, from, to, c.Alignment)
	m.publish(core.TopicStageChanged, c, map[string]any{
		"from": from.String(),
		"to":   to.String(),
	})
}

func (m *Machine) publish(topic core.Topic, c *Candidate, detail map[string]any) {
	if detail == nil {
		detail = map[string]any{}
	}
	detail["agent_name"] = c.AgentName
	detail["stage"] = c.Stage.String()
	detail["alignment"] = c.Alignment
	if err := m.bus.Publish(core.NewNotification(topic, c.AgentID, detail)); err != nil {
		m.logger.Warn("absorption notification listener error: %v", err)
	}
}
