package ingestion

import (
	"math/rand"
	"time"
)

// DefaultReconnectDelay is the fixed wait between reconnect attempts.
const DefaultReconnectDelay = 5 * time.Second

// ReconnectPolicy decides how long to wait before reconnect attempt n (1-based)
// and whether to try at all.
type ReconnectPolicy interface {
	Next(attempt int) (time.Duration, bool)
}

// FixedDelay waits the same delay before every attempt.
type FixedDelay struct {
	Delay time.Duration
	// MaxAttempts stops reconnecting after that many consecutive failures.
	// Zero retries forever.
	MaxAttempts int
}

// Next implements ReconnectPolicy.
func (p FixedDelay) Next(attempt int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	if p.Delay <= 0 {
		return DefaultReconnectDelay, true
	}
	return p.Delay, true
}

// ExponentialBackoff grows the delay by Factor per attempt, capped at Max,
// with +/- Jitter (fraction of the delay) randomization.
type ExponentialBackoff struct {
	Min         time.Duration
	Max         time.Duration
	Factor      float64
	Jitter      float64
	MaxAttempts int
}

// Next implements ReconnectPolicy.
func (b ExponentialBackoff) Next(attempt int) (time.Duration, bool) {
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return 0, false
	}
	if attempt <= 0 {
		attempt = 1
	}
	minDelay := b.Min
	if minDelay <= 0 {
		minDelay = 250 * time.Millisecond
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	factor := b.Factor
	if factor <= 1 {
		factor = 2.0
	}

	wait := minDelay
	for i := 1; i < attempt; i++ {
		next := time.Duration(float64(wait) * factor)
		if next > maxDelay {
			wait = maxDelay
			break
		}
		wait = next
	}

	if b.Jitter <= 0 {
		return wait, true
	}
	jitter := b.Jitter
	if jitter > 1 {
		jitter = 1
	}
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta), true
}
