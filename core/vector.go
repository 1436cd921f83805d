package core

import (
	"fmt"
	"math"
)

// EmbeddingDim is the dimensionality used for identity embeddings and
// attractor centroids throughout the substrate. Callers supplying their own
// vectors must match it (or agree on another dimension consistently); the
// math in this file only requires that both operands agree.
const EmbeddingDim = 768

// ErrDimensionMismatch is returned when a pairwise vector operation receives
// vectors of unequal length. This is a contract violation by the caller and
// is never silently defaulted.
var ErrDimensionMismatch = fmt.Errorf("vector dimension mismatch")

// Cosine returns the cosine similarity between a and b in [-1, 1].
// A zero vector on either side yields 0 (no direction, no similarity).
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(v []float64) []float64 {
	m := Magnitude(v)
	if m == 0 {
		return v
	}
	for i := range v {
		v[i] /= m
	}
	return v
}

// PseudoEmbedding deterministically derives a unit-norm vector of the given
// dimension from a string seed using a linear congruential generator. It is
// an explicit stand-in for a real embedding service: the same seed always
// yields the identical vector, across runs and platforms. The LCG constants
// (Numerical Recipes) carry no meaning beyond reproducibility.
func PseudoEmbedding(seed string, dim int) []float64 {
	var state uint64
	for _, r := range seed {
		state = state*31 + uint64(r)
	}
	v := make([]float64, dim)
	for i := range v {
		state = state*6364136223846793005 + 1442695040888963407
		// Top 53 bits into [0,1), then shift to [-1,1).
		v[i] = float64(state>>11)/float64(1<<53)*2 - 1
	}
	return Normalize(v)
}
