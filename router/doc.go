// Package router implements probabilistic message routing over an energy
// field. Each candidate agent is assigned an energy from its semantic
// distance to the message, its load, its coherence and (optionally) the
// identity of the model backing it; energies become a Boltzmann distribution
// p_i ∝ exp(−E_i/T) and one candidate is sampled from it. Temperature trades
// exploration for exploitation and may decay after every decision according
// to a configurable annealing schedule.
package router
