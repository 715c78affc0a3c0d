package session

import (
	"context"
	"errors"
	"sync"
)

// ErrChannelClosed is returned when sending on a closed channel.
var ErrChannelClosed = errors.New("channel closed")

// Channel is a client's connection to a host. Messages is closed when the
// connection ends.
type Channel interface {
	Send(ctx context.Context, cmd Command) error
	Messages() <-chan Message
	Close() error
}

// Pipe connects an in-process client to h. Messages are queued without
// bound so the host never waits on the client.
func Pipe(h *Host) Channel {
	p := &pipe{
		host:   h,
		out:    make(chan Message),
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	go p.pump()
	p.unsubscribe = h.Subscribe(pipeSink{p})
	return p
}

type pipe struct {
	host        *Host
	out         chan Message
	wake        chan struct{}
	closed      chan struct{}
	closeOnce   sync.Once
	unsubscribe func()

	mu    sync.Mutex
	queue []Message
	ended bool
}

func (p *pipe) Send(ctx context.Context, cmd Command) error {
	select {
	case <-p.closed:
		return ErrChannelClosed
	default:
	}
	return p.host.Dispatch(ctx, cmd)
}

func (p *pipe) Messages() <-chan Message {
	return p.out
}

func (p *pipe) Close() error {
	p.unsubscribe()
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *pipe) push(msg Message) {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, msg)
	p.mu.Unlock()
	p.signal()
}

// end is called by the host. Queued messages are still delivered.
func (p *pipe) end() {
	p.mu.Lock()
	p.ended = true
	p.mu.Unlock()
	p.signal()
}

func (p *pipe) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *pipe) pump() {
	defer close(p.out)
	for {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		ended := p.ended
		p.mu.Unlock()

		for _, msg := range batch {
			select {
			case p.out <- msg:
			case <-p.closed:
				return
			}
		}
		if ended {
			return
		}

		select {
		case <-p.wake:
		case <-p.closed:
			return
		}
	}
}

// pipeSink is the host side of a pipe.
type pipeSink struct{ p *pipe }

func (s pipeSink) Send(msg Message) { s.p.push(msg) }
func (s pipeSink) Close()           { s.p.end() }
