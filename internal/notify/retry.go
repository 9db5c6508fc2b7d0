package notify

import (
	"math/rand/v2"
	"time"
)

// Default retry policy values.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 400 * time.Millisecond
	DefaultMaxJitter  = 200 * time.Millisecond
)

// RetryPolicy bounds the attempts made for one recipient and spaces them
// with linear backoff plus jitter.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts, the first one included.
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration
}

// DefaultRetryPolicy returns 3 attempts with 400ms linear backoff and up to
// 200ms of jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxJitter:  DefaultMaxJitter,
	}
}

// withDefaults fills zero fields from DefaultRetryPolicy. A negative
// jitter disables jitter.
func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxJitter == 0 {
		p.MaxJitter = DefaultMaxJitter
	}
	if p.MaxJitter < 0 {
		p.MaxJitter = 0
	}
	return p
}

// ShouldRetry reports whether another attempt may follow attempt number
// attempt (1-based).
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxRetries
}

// NextBackoff returns the delay after the given failed attempt (1-based):
// BaseDelay * attempt + a random jitter in [0, MaxJitter).
func (p RetryPolicy) NextBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	var jitter time.Duration
	if p.MaxJitter > 0 {
		jitter = time.Duration(rand.Int64N(int64(p.MaxJitter)))
	}
	return p.BaseDelay*time.Duration(attempt) + jitter
}
