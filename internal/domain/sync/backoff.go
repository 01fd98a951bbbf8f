package sync

import (
	"math/rand/v2"
	"time"
)

// Default backoff bounds
const (
	DefaultBaseDelay = 2 * time.Second
	DefaultCapDelay  = 5 * time.Minute

	// maxJitterFraction bounds the additive jitter at 30% of the base delay
	maxJitterFraction = 0.3
)

// BackoffPolicy computes the wait before retry attempt N as
// min(base * 2^attempt, cap) plus a random 0-30% jitter, so many queue
// items failing together don't retry in lockstep.
type BackoffPolicy struct {
	BaseDelay time.Duration
	CapDelay  time.Duration
}

// NewBackoffPolicy creates a policy, falling back to defaults for
// non-positive bounds
func NewBackoffPolicy(base, cap time.Duration) BackoffPolicy {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if cap <= 0 {
		cap = DefaultCapDelay
	}
	return BackoffPolicy{BaseDelay: base, CapDelay: cap}
}

// Delay returns the jittered wait for the given zero-based retry attempt
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	base := p.baseFor(attempt)
	jitter := time.Duration(rand.Float64() * maxJitterFraction * float64(base))
	return base + jitter
}

// baseFor returns the un-jittered exponential delay, capped
func (p BackoffPolicy) baseFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.CapDelay {
			return p.CapDelay
		}
	}
	if delay > p.CapDelay {
		return p.CapDelay
	}
	return delay
}
