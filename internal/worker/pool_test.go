package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edumarques81/stellar-offline-player/internal/worker"
)

func TestPoolRunsJobs(t *testing.T) {
	p := worker.New(worker.WithSize(2))

	var n atomic.Int32
	for range 10 {
		p.Go(context.Background(), func(context.Context) { n.Add(1) })
	}
	p.Close()

	if got := n.Load(); got != 10 {
		t.Errorf("expected 10 jobs, got %d", got)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := worker.New(worker.WithSize(2), worker.WithName("test"))

	var running, peak atomic.Int32
	var mu sync.Mutex
	for range 8 {
		p.Go(context.Background(), func(context.Context) {
			cur := running.Add(1)
			mu.Lock()
			if cur > peak.Load() {
				peak.Store(cur)
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		})
	}
	p.Close()

	if got := peak.Load(); got > 2 {
		t.Errorf("expected at most 2 concurrent jobs, got %d", got)
	}
}

func TestPoolSkipsCancelledJobs(t *testing.T) {
	p := worker.New(worker.WithSize(1))

	release := make(chan struct{})
	p.Go(context.Background(), func(context.Context) { <-release })

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	p.Go(ctx, func(context.Context) { ran.Store(true) })
	cancel()
	close(release)
	p.Close()

	if ran.Load() {
		t.Error("expected cancelled job not to run")
	}
}

func TestPoolDropsAfterClose(t *testing.T) {
	p := worker.New()
	p.Close()

	if p.Go(context.Background(), func(context.Context) {}) {
		t.Error("expected Go to report a dropped job")
	}
}
