package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/pgseed/pgseed/pkg/pgseed"
)

// ExponentialBackoff grows the delay geometrically per attempt, caps it at
// a ceiling, and spreads concurrent retriers with jitter. Defaults suit
// connection establishment: 100ms first delay, doubling, 30s ceiling,
// 10% jitter.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	maxAttempts  int

	// jitter is the fraction of the delay randomized in both directions.
	// 0 disables it; tests rely on that.
	jitter    float64
	randFloat func() float64
}

// BackoffOption configures an ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.initialDelay = d }
}

// WithMaxDelay sets the ceiling no computed delay exceeds (before jitter).
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.maxDelay = d }
}

// WithMultiplier sets the per-attempt growth factor.
func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.multiplier = m }
}

// WithJitter sets the randomized fraction of each delay, 0 to 1.
func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitter = j }
}

// WithJitterFunc replaces the randomness source. Deterministic tests pass
// a constant function here.
func WithJitterFunc(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.randFloat = f }
}

// NewExponentialBackoff returns a strategy allowing maxAttempts retries
// after the initial try (0 disables retries, negative retries until the
// context ends).
//
//	strategy := retry.NewExponentialBackoff(3,
//	    retry.WithInitialDelay(200*time.Millisecond),
//	    retry.WithMaxDelay(time.Minute),
//	)
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
		maxAttempts:  maxAttempts,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NextDelay returns the wait before retry number attempt (zero-indexed).
// The exponential value is capped at the ceiling first; jitter then moves
// the result by up to ±jitter of its value.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	sec := b.initialDelay.Seconds() * math.Pow(b.multiplier, float64(attempt))
	if ceiling := b.maxDelay.Seconds(); sec > ceiling {
		sec = ceiling
	}

	if b.jitter > 0 {
		rnd := b.randFloat
		if rnd == nil {
			rnd = rand.Float64
		}
		// rnd() in [0,1) maps to an offset in [-1,1).
		sec *= 1 + b.jitter*(2*rnd()-1)
	}

	return time.Duration(sec * float64(time.Second))
}

// MaxAttempts returns the retry budget this strategy was built with.
func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}

var _ pgseed.BackoffStrategy = (*ExponentialBackoff)(nil)
