package worker

import (
	"math"
	"time"
)

// Backoff is a capped exponential delay policy for the poll loop.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
}

func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Max: 30 * time.Second, Multiplier: 2}
}

// Delay returns the wait before the next attempt after the given number of
// consecutive failures, starting at 1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(b.Base) * math.Pow(mult, float64(attempt-1))
	if b.Max > 0 && delay > float64(b.Max) {
		return b.Max
	}
	return time.Duration(delay)
}
