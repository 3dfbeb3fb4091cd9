package client

import (
	"math/rand"
	"time"
)

// BackoffStrategy paces retry attempts against an unreachable daemon.
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically per attempt, capped
// at Max, with optional symmetric jitter (a fraction in [0, 1]).
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter float64
}

// DefaultBackoff suits TUI reconnect loops: 500ms doubling up to 10s
// with 20% jitter.
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:   500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

// Next returns the wait before retry number attempt (0-based).
// Negative attempts behave like attempt 0.
func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	d := float64(b.Base)
	for ; attempt > 0; attempt-- {
		d *= b.Factor
		if d >= float64(b.Max) {
			d = float64(b.Max)
			break
		}
	}

	if b.Jitter > 0 {
		d *= 1 + b.Jitter*(rand.Float64()*2-1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
