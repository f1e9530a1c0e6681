package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter delays the caller before the next request
type Limiter interface {
	// Wait blocks until the next request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// Unlimited never waits
type Unlimited struct{}

// Wait returns immediately unless ctx is already done
func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Jitter sleeps a uniformly random duration in [min, max] on every Wait.
// It is the gentle-mode politeness delay.
type Jitter struct {
	min time.Duration
	max time.Duration
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewJitter creates a jitter delay. Bounds are swapped if given in the
// wrong order.
func NewJitter(min, max time.Duration) *Jitter {
	if max < min {
		min, max = max, min
	}
	if min < 0 {
		min = 0
	}
	return &Jitter{
		min: min,
		max: max,
		rnd: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
}

// WithSource replaces the random source, for reproducible delays
func (j *Jitter) WithSource(r *rand.Rand) *Jitter {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rnd = r
	return j
}

// Bounds returns the configured range
func (j *Jitter) Bounds() (time.Duration, time.Duration) {
	return j.min, j.max
}

// Next draws the next delay
func (j *Jitter) Next() time.Duration {
	span := j.max - j.min
	if span <= 0 {
		return j.min
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.min + time.Duration(j.rnd.Int64N(int64(span)+1))
}

// Wait sleeps for Next() or until ctx is done
func (j *Jitter) Wait(ctx context.Context) error {
	return Sleep(ctx, j.Next())
}

// Fixed caps the request rate with a token bucket
type Fixed struct {
	limiter *rate.Limiter
}

// NewPerMinute allows perMinute requests per minute with a burst of one
func NewPerMinute(perMinute int) *Fixed {
	return &Fixed{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Allow reports whether a request may proceed right now
func (f *Fixed) Allow() bool {
	return f.limiter.Allow()
}

// Wait blocks until a token is available
func (f *Fixed) Wait(ctx context.Context) error {
	return f.limiter.Wait(ctx)
}

// New returns a fixed cap for perMinute > 0, Unlimited otherwise
func New(perMinute int) Limiter {
	if perMinute <= 0 {
		return Unlimited{}
	}
	return NewPerMinute(perMinute)
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
