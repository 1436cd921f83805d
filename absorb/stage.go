package absorb

// Stage is a candidate's position in the staged-trust admission pipeline.
// Transitions are monotonic forward with exactly two regressions: explicit
// rejection and injection-grade adversarial detection, both of which return
// a candidate to StageObserved.
type Stage int

const (
	// StageObserved is the initial stage: the agent has been seen but not
	// evaluated.
	StageObserved Stage = iota
	// StageAssessed means enough interactions exist to score alignment.
	StageAssessed
	// StageInvited means an explicit invitation is outstanding.
	StageInvited
	// StageConnected means the invitation was accepted and a capability
	// token issued by the external security layer is held.
	StageConnected
	// StageSyncing means alignment is high enough to ramp coupling.
	StageSyncing
	// StageAbsorbed is full membership: coupling reached its target.
	StageAbsorbed
)

// String returns the canonical upper-case stage name.
func (s Stage) String() string {
	switch s {
	case StageObserved:
		return "OBSERVED"
	case StageAssessed:
		return "ASSESSED"
	case StageInvited:
		return "INVITED"
	case StageConnected:
		return "CONNECTED"
	case StageSyncing:
		return "SYNCING"
	case StageAbsorbed:
		return "ABSORBED"
	default:
		return "UNKNOWN"
	}
}

// Signal classifies an observed suspicious behavior. SignalInjection is
// ejection-grade; the others are mild and only penalize in combination.
type Signal string

const (
	// SignalInjection is a detected prompt/command injection attempt.
	// Immediate ejection, no appeal.
	SignalInjection Signal = "injection_attempt"
	// SignalRapidPhaseShift is an abrupt behavioral swing.
	SignalRapidPhaseShift Signal = "rapid_phase_shift"
	// SignalExcessBroadcast is abnormal message volume.
	SignalExcessBroadcast Signal = "excessive_broadcast"
)
