package fps

import (
	"slices"
	"time"
)

// Sampler records frame times at a fixed sampling rate.
type Sampler struct {
	// SampleRate is the number of samples taken per second of wall time.
	SampleRate float64

	lastSample time.Duration
	elapsed    time.Duration
	samples    []time.Duration
}

// NewSampler returns a sampler taking rate samples per second.
func NewSampler(rate float64) *Sampler {
	return &Sampler{SampleRate: rate}
}

// Add advances the sampler clock by dt and records dt when a sample is due.
func (s *Sampler) Add(dt time.Duration) {
	if dt <= 0 {
		return
	}
	s.elapsed += dt
	if s.SampleRate > 0 {
		interval := time.Duration(float64(time.Second) / s.SampleRate)
		if s.elapsed-s.lastSample < interval {
			return
		}
	}
	s.lastSample = s.elapsed
	s.samples = append(s.samples, dt)
}

// Len returns the number of recorded samples.
func (s *Sampler) Len() int { return len(s.samples) }

// Average returns the mean frames per second over all samples.
func (s *Sampler) Average() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range s.samples {
		sum += d
	}
	mean := sum.Seconds() / float64(len(s.samples))
	return 1 / mean
}

// Percentile returns the FPS below which p percent of samples fall.
// Percentile(1) is the usual "1% low".
func (s *Sampler) Percentile(p float64) float64 {
	if len(s.samples) == 0 {
		return 0
	}
	sorted := slices.Clone(s.samples)
	// slowest frame first
	slices.SortFunc(sorted, func(a, b time.Duration) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	idx := int(p * 0.01 * float64(len(sorted)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return 1 / sorted[idx].Seconds()
}

// Reset discards every sample.
func (s *Sampler) Reset() {
	s.samples = s.samples[:0]
	s.lastSample = 0
	s.elapsed = 0
}
