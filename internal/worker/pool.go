// Package worker provides a bounded pool for background jobs whose results
// are handed back to an owner loop.
package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Job is a unit of background work.
type Job func(ctx context.Context)

// Pool runs jobs with bounded concurrency. Go never blocks the caller.
type Pool struct {
	name string
	sem  chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option is a functional option for configuring the pool
type Option func(*Pool)

// WithSize sets the maximum number of concurrently running jobs
func WithSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.sem = make(chan struct{}, size)
		}
	}
}

// WithName sets the name used in log messages
func WithName(name string) Option {
	return func(p *Pool) {
		p.name = name
	}
}

// New creates a pool. The default size is 4.
func New(opts ...Option) *Pool {
	p := &Pool{
		name: "worker",
		sem:  make(chan struct{}, 4),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Go schedules job. The job waits for a free slot unless ctx is cancelled
// first, in which case it never runs. Jobs submitted after Close are dropped.
func (p *Pool) Go(ctx context.Context, job Job) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		log.Debug().Str("pool", p.name).Msg("Dropping job on closed pool")
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-p.sem }()

		if ctx.Err() != nil {
			return
		}
		job(ctx)
	}()
	return true
}

// Close stops accepting jobs and waits for the scheduled ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	log.Debug().Str("pool", p.name).Msg("Worker pool closed")
}
