package env

import (
	"sync"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
)

// Phone tracks call state. Without telephony it stays idle unless driven
// through SetState.
type Phone struct {
	mu       sync.Mutex
	listener engine.PhoneListener
	state    CallState
}

// CallState is the telephony state.
type CallState int

const (
	CallIdle CallState = iota
	CallRinging
	CallOffHook
)

// NewPhone returns an idle phone.
func NewPhone() *Phone {
	return &Phone{}
}

func (p *Phone) Register(l engine.PhoneListener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

func (p *Phone) Unregister() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = nil
}

func (p *Phone) IsIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == CallIdle
}

// SetState changes the call state and notifies the registered listener.
func (p *Phone) SetState(s CallState) {
	p.mu.Lock()
	if s == p.state {
		p.mu.Unlock()
		return
	}
	p.state = s
	l := p.listener
	p.mu.Unlock()

	if l == nil {
		return
	}
	switch s {
	case CallIdle:
		l.OnIdle()
	case CallRinging:
		l.OnRinging()
	case CallOffHook:
		l.OnOffHook()
	}
}

// Noisy reports output device removal.
type Noisy struct {
	mu sync.Mutex
	fn func()
}

// NewNoisy returns a detector with no registered callback.
func NewNoisy() *Noisy {
	return &Noisy{}
}

func (n *Noisy) Register(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fn = fn
}

func (n *Noisy) Unregister() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fn = nil
}

// Registered reports whether a callback is installed.
func (n *Noisy) Registered() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fn != nil
}

// Trigger fires the registered callback, as when a headset is unplugged.
func (n *Noisy) Trigger() {
	n.mu.Lock()
	fn := n.fn
	n.mu.Unlock()
	if fn != nil {
		fn()
	}
}
