package engine

import (
	"context"
	"sync"
)

// mailbox is the unbounded task queue of the owner goroutine. post never
// blocks, so it is safe from decoder callbacks, timers and the loop itself.
type mailbox struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (m *mailbox) post(fn func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.tasks = append(m.tasks, fn)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// run executes tasks in order until close is called and the queue drains.
func (m *mailbox) run(after func()) {
	defer close(m.done)
	for range m.wake {
		for {
			m.mu.Lock()
			if len(m.tasks) == 0 {
				closed := m.closed
				m.mu.Unlock()
				if closed {
					return
				}
				break
			}
			fn := m.tasks[0]
			m.tasks[0] = nil
			m.tasks = m.tasks[1:]
			m.mu.Unlock()

			fn()
			after()
		}
	}
}

// close stops accepting tasks. Queued tasks still run.
func (m *mailbox) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// op is a cancelable background operation. Its fields are owned by the loop.
type op struct {
	cancel   context.CancelFunc
	disposed bool
}

// dispose cancels the operation. The completion never runs afterwards.
// Safe on nil and idempotent.
func (o *op) dispose() {
	if o == nil || o.disposed {
		return
	}
	o.disposed = true
	o.cancel()
}

// active reports whether the operation is still pending.
func (o *op) active() bool {
	return o != nil && !o.disposed
}

// async runs fn on the worker pool and posts done back to the loop unless
// the operation was disposed in the meantime.
func async[T any](e *Engine, fn func(ctx context.Context) (T, error), done func(T, error)) *op {
	ctx, cancel := context.WithCancel(e.ctx)
	o := &op{cancel: cancel}

	scheduled := e.pool.Go(ctx, func(ctx context.Context) {
		v, err := fn(ctx)
		e.mbox.post(func() {
			if o.disposed {
				return
			}
			o.disposed = true
			cancel()
			done(v, err)
		})
	})
	if !scheduled {
		o.disposed = true
		cancel()
	}
	return o
}
