// Package ratelimit provides the politeness delays used while scanning.
//
// Two fixed policies are available, and neither adapts to server
// responses:
//
// Jitter:
//   - Sleeps a uniformly random duration between a lower and upper bound
//   - Used in gentle mode after every classified identifier
//
// Fixed:
//   - Token bucket from golang.org/x/time/rate capping requests per minute
//   - Applied before each dispatch when --rpm is set
//
// Usage:
//
//	jitter := ratelimit.NewJitter(time.Second, 4*time.Second)
//	if err := jitter.Wait(ctx); err != nil {
//	    return err // cancelled
//	}
//
//	limiter := ratelimit.New(cfg.Scan.RequestsPerMinute)
//	_ = limiter.Wait(ctx)
package ratelimit
