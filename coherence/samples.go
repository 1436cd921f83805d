package coherence

import "math"

// sampleRing is a fixed-capacity ring buffer of coherence samples. Once full
// it overwrites the oldest sample. Samples feed rolling statistics only;
// control decisions never look further back than the latest value.
type sampleRing struct {
	buf   []float64
	next  int
	count int
}

func newSampleRing(cap int) *sampleRing {
	if cap <= 0 {
		cap = 1
	}
	return &sampleRing{buf: make([]float64, cap)}
}

func (r *sampleRing) push(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Stats summarizes the recorded coherence history.
type Stats struct {
	Count    int
	Latest   float64
	Mean     float64
	Min      float64
	Max      float64
	Variance float64
}

func (r *sampleRing) stats() Stats {
	if r.count == 0 {
		return Stats{}
	}
	s := Stats{Count: r.count, Min: math.Inf(1), Max: math.Inf(-1)}
	var sum, sumSq float64
	for i := 0; i < r.count; i++ {
		v := r.buf[i]
		sum += v
		sumSq += v * v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(r.count)
	s.Variance = sumSq/float64(r.count) - s.Mean*s.Mean
	if s.Variance < 0 {
		s.Variance = 0 // float noise on constant histories
	}
	latestIdx := (r.next - 1 + len(r.buf)) % len(r.buf)
	s.Latest = r.buf[latestIdx]
	return s
}
