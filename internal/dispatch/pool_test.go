package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ytscan/pkg/logger"
)

func TestPoolRespectsLimit(t *testing.T) {
	const limit = 3
	pool := NewPool(limit, logger.NewNopLogger())

	var running, maxSeen atomic.Int32
	futures := make([]*Future[int], 0, 20)

	for i := 0; i < 20; i++ {
		i := i
		f, err := Submit(context.Background(), pool, func(ctx context.Context) int {
			n := running.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return i * 2
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		futures = append(futures, f)
	}

	for i, f := range futures {
		if got := f.Wait(); got != i*2 {
			t.Errorf("future %d = %d, want %d", i, got, i*2)
		}
	}
	pool.Wait()

	if got := maxSeen.Load(); got > limit {
		t.Errorf("observed %d concurrent tasks, limit is %d", got, limit)
	}
	if pool.Peak() > limit {
		t.Errorf("Peak() = %d, limit is %d", pool.Peak(), limit)
	}
	if pool.InFlight() != 0 {
		t.Errorf("InFlight() = %d after Wait, want 0", pool.InFlight())
	}
	if pool.Completed() != 20 {
		t.Errorf("Completed() = %d, want 20", pool.Completed())
	}
}

func TestSubmitBlocksUntilSlotFree(t *testing.T) {
	pool := NewPool(1, logger.NewNopLogger())
	release := make(chan struct{})

	first, err := Submit(context.Background(), pool, func(ctx context.Context) struct{} {
		<-release
		return struct{}{}
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Submit(ctx, pool, func(ctx context.Context) struct{} { return struct{}{} })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error while pool is full, got %v", err)
	}

	close(release)
	first.Wait()

	if _, err := Submit(context.Background(), pool, func(ctx context.Context) struct{} { return struct{}{} }); err != nil {
		t.Fatalf("Submit() after release error = %v", err)
	}
	pool.Wait()
}

func TestTaskOutlivesSubmitContext(t *testing.T) {
	pool := NewPool(2, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	f, err := Submit(ctx, pool, func(taskCtx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		return taskCtx.Err()
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	<-started
	cancel()

	if err := f.Wait(); err != nil {
		t.Errorf("task context was cancelled: %v", err)
	}
	if _, err := Submit(ctx, pool, func(context.Context) error { return nil }); err == nil {
		t.Error("Submit() with a cancelled context should fail")
	}
}

func TestNewPoolClampsSize(t *testing.T) {
	if got := NewPool(0, logger.NewNopLogger()).Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}
