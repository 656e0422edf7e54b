package manager

import (
	"math/rand"
	"time"
)

// Backoff computes exponential retry delays: Initial * Multiplier^attempt,
// capped at Max. With Jitter enabled each delay is randomized by ±25%.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     bool
}

// DefaultBackoff returns the engine's standard policy: 100ms doubling up to
// 30s with jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    100 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Delay returns the delay before the given zero-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = 2.0
	}
	max := b.Max
	if max <= 0 {
		max = 30 * time.Second
	}

	d := float64(initial)
	for i := 0; i < attempt; i++ {
		d *= multiplier
		if d >= float64(max) {
			d = float64(max)
			break
		}
	}
	delay := time.Duration(d)
	if delay > max {
		delay = max
	}

	if b.Jitter {
		// ±25%
		span := float64(delay) * 0.25
		delay += time.Duration((rand.Float64()*2 - 1) * span)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}
