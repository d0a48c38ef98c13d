package fps

import (
	"math"
	"testing"
	"time"
)

type fixedCap int

func (c fixedCap) GetFPSLimit() int { return int(c) }

func TestLimiterUnlimitedReturnsImmediately(t *testing.T) {
	l := NewLimiter(fixedCap(0))
	start := time.Now()
	for i := 0; i < 100; i++ {
		l.Wait()
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("unlimited limiter slept for %v", time.Since(start))
	}
}

func TestLimiterPacesFrames(t *testing.T) {
	l := NewLimiter(fixedCap(200))
	start := time.Now()
	for i := 0; i < 10; i++ {
		l.Wait()
	}
	// 10 frames at 200 fps is 50ms
	if el := time.Since(start); el < 45*time.Millisecond {
		t.Errorf("limiter too fast: %v", el)
	}
}

func TestSamplerRate(t *testing.T) {
	s := NewSampler(1)
	for i := 0; i < 120; i++ {
		s.Add(time.Second / 60)
	}
	// one sample per simulated second
	if s.Len() < 1 || s.Len() > 2 {
		t.Fatalf("samples = %d, want 1 or 2", s.Len())
	}
	if got := s.Average(); math.Abs(got-60) > 0.5 {
		t.Errorf("Average = %v, want 60", got)
	}
}

func TestSamplerPercentile(t *testing.T) {
	s := NewSampler(0)
	for i := 0; i < 99; i++ {
		s.Add(10 * time.Millisecond)
	}
	s.Add(100 * time.Millisecond)

	if got := s.Percentile(0); math.Abs(got-10) > 1e-9 {
		t.Errorf("Percentile(0) = %v, want 10", got)
	}
	if got := s.Percentile(50); math.Abs(got-100) > 1e-9 {
		t.Errorf("Percentile(50) = %v, want 100", got)
	}
	if got := s.Percentile(100); math.Abs(got-100) > 1e-9 {
		t.Errorf("Percentile(100) = %v, want 100", got)
	}

	s.Reset()
	if s.Average() != 0 || s.Percentile(1) != 0 {
		t.Error("Reset kept samples")
	}
}
