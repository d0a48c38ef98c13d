package fps

import "time"

// CapSource supplies the current frame cap. 0 means unlimited.
type CapSource interface {
	GetFPSLimit() int
}

// spinWindow is how close to the deadline the limiter stops sleeping and spins.
const spinWindow = 200 * time.Microsecond

// Limiter provides high-precision frame rate limiting.
type Limiter struct {
	caps CapSource
	next time.Time
}

// NewLimiter creates a limiter reading its cap from caps on every frame.
func NewLimiter(caps CapSource) *Limiter {
	return &Limiter{caps: caps}
}

// Wait blocks until the next frame should start.
// Uses a hybrid sleep/spin approach for better precision on high FPS caps.
func (l *Limiter) Wait() {
	limit := 0
	if l.caps != nil {
		limit = l.caps.GetFPSLimit()
	}
	if limit <= 0 {
		l.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(limit)
	if l.next.IsZero() {
		l.next = time.Now().Add(target)
	} else {
		l.next = l.next.Add(target)
	}

	for {
		remaining := time.Until(l.next)
		if remaining <= 0 {
			break
		}
		if remaining > spinWindow {
			time.Sleep(remaining - spinWindow)
		}
	}

	// resync after a hitch so we don't try to catch up with a burst of frames
	if late := -time.Until(l.next); late > target {
		l.next = time.Now().Add(target)
	}
}
