package steamcmd

import (
	"math"
	"math/rand"
	"time"
)

// Default retry configuration values.
const (
	DefMaxAttempts   = 4
	DefBaseDelay     = 2 * time.Second
	DefMaxDelay      = 30 * time.Second
	DefJitterFactor  = 0.5
	DefBackoffFactor = 2.0
)

// RetryConfig bounds the retry chain for retryable download failures.
type RetryConfig struct {
	MaxAttempts   int           // total attempts including the first
	BaseDelay     time.Duration // delay before the first retry
	MaxDelay      time.Duration // cap on any single delay
	JitterFactor  float64       // random jitter factor in [0, 1]
	BackoffFactor float64       // exponential multiplier
}

// DefaultRetryConfig returns the bounded defaults (4 attempts, 2s base,
// factor 2, 30s cap).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   DefMaxAttempts,
		BaseDelay:     DefBaseDelay,
		MaxDelay:      DefMaxDelay,
		JitterFactor:  DefJitterFactor,
		BackoffFactor: DefBackoffFactor,
	}
}

// Backoff computes the delay before retry number attempt (1-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.JitterFactor > 0 {
		jitter := c.JitterFactor * (2*rand.Float64() - 1)
		delay *= 1 + jitter
	}
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if delay < 0 {
		delay = float64(c.BaseDelay)
	}
	return time.Duration(delay)
}
