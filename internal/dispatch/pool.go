package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"ytscan/pkg/logger"
)

// Future holds the result of a submitted task
type Future[T any] struct {
	done  chan struct{}
	value T
}

// Wait blocks until the task has returned and yields its value
func (f *Future[T]) Wait() T {
	<-f.done
	return f.value
}

// Pool bounds the number of tasks running at once. Submission blocks
// while the pool is full, so the caller never schedules more than
// Size tasks ahead of completion.
type Pool struct {
	size      int64
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	inFlight  atomic.Int64
	peak      atomic.Int64
	completed atomic.Int64
	logger    logger.Logger
}

// NewPool creates a pool allowing at most size concurrent tasks
func NewPool(size int, log logger.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		size:   int64(size),
		sem:    semaphore.NewWeighted(int64(size)),
		logger: log.WithField("component", "dispatch"),
	}
}

// Submit waits for a free slot and starts task in its own goroutine.
// ctx only governs the wait: once started, the task receives a context
// that carries ctx's values but is never cancelled, so in-flight work
// runs to completion after the caller stops submitting.
func Submit[T any](ctx context.Context, p *Pool, task func(context.Context) T) (*Future[T], error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	n := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	f := &Future[T]{done: make(chan struct{})}
	taskCtx := context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer close(f.done)
		defer func() {
			p.inFlight.Add(-1)
			p.completed.Add(1)
		}()

		f.value = task(taskCtx)
	}()

	return f, nil
}

// Wait blocks until every submitted task has returned
func (p *Pool) Wait() {
	p.wg.Wait()
	p.logger.DebugWithFields("Pool drained", map[string]interface{}{
		"completed": p.completed.Load(),
		"peak":      p.peak.Load(),
	})
}

// Size returns the concurrency limit
func (p *Pool) Size() int {
	return int(p.size)
}

// InFlight returns the number of tasks currently running
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Peak returns the highest number of tasks that ran at once
func (p *Pool) Peak() int {
	return int(p.peak.Load())
}

// Completed returns the number of tasks that have returned
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}
