// Package coherence implements the phase-synchronization engine of the
// substrate: a Kuramoto oscillator model in which each registered observer
// owns one oscillator. An external scheduler drives Tick on a fixed cadence;
// each tick integrates the coupled phase equations over the elapsed
// wall-clock interval and records the resulting order parameter (the scalar
// coherence of the swarm, 0 incoherent to 1 perfectly synchronized).
//
// The engine is synchronous and single-threaded: it spawns no background
// work and mutates only its own collections. Hosts that tick from multiple
// goroutines must serialize access externally.
package coherence
