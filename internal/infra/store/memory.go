package store

import (
	"context"
	"sync"
)

// Memory is an in-process Backend. It is used by tests and by hosts
// started without a data directory.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

// Namespace returns the view for name.
func (m *Memory) Namespace(name string) Namespace {
	return &memoryNamespace{m: m, name: name}
}

// Close marks the backend closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memoryNamespace struct {
	m    *Memory
	name string
}

func (n *memoryNamespace) Get(_ context.Context, key string) ([]byte, bool, error) {
	n.m.mu.RLock()
	defer n.m.mu.RUnlock()

	if n.m.closed {
		return nil, false, ErrClosed
	}
	v, ok := n.m.data[n.name][key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (n *memoryNamespace) Put(_ context.Context, key string, value []byte) error {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()

	if n.m.closed {
		return ErrClosed
	}
	ns, ok := n.m.data[n.name]
	if !ok {
		ns = make(map[string][]byte)
		n.m.data[n.name] = ns
	}
	v := make([]byte, len(value))
	copy(v, value)
	ns[key] = v
	return nil
}

func (n *memoryNamespace) Delete(_ context.Context, key string) error {
	n.m.mu.Lock()
	defer n.m.mu.Unlock()

	if n.m.closed {
		return ErrClosed
	}
	delete(n.m.data[n.name], key)
	return nil
}
