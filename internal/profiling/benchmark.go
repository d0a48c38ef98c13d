package profiling

import "time"

// Benchmark is a stopwatch for one-off measurements such as a single layer refresh.
type Benchmark struct {
	start   time.Time
	elapsed time.Duration
	running bool

	now func() time.Time
}

// Start begins a new measurement, discarding the previous one.
func (b *Benchmark) Start() {
	b.start = b.clock()
	b.elapsed = 0
	b.running = true
}

// Stop ends the measurement and returns its duration. Stopping twice is a no-op.
func (b *Benchmark) Stop() time.Duration {
	if b.running {
		b.elapsed = b.clock().Sub(b.start)
		b.running = false
	}
	return b.elapsed
}

// Elapsed reports the time so far while running, or the last measurement.
func (b *Benchmark) Elapsed() time.Duration {
	if b.running {
		return b.clock().Sub(b.start)
	}
	return b.elapsed
}

func (b *Benchmark) Milliseconds() float64 {
	return float64(b.Elapsed().Microseconds()) / 1000.0
}

func (b *Benchmark) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}
