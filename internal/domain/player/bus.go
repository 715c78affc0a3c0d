package player

import (
	"sync"

	"github.com/samber/lo"
)

// Listener receives events.
type Listener func(Event)

type subscription struct {
	id    uint64
	fn    Listener
	kinds map[Kind]struct{}
}

func (s *subscription) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Bus fans events out to listeners. Publish delivers synchronously on the
// caller's goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []*subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for the given kinds, or for every kind when none are
// given. The returned function removes the subscription.
func (b *Bus) Subscribe(fn Listener, kinds ...Kind) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, fn: fn}
	if len(kinds) > 0 {
		sub.kinds = lo.SliceToMap(kinds, func(k Kind) (Kind, struct{}) { return k, struct{}{} })
	}
	b.subs = append(b.subs, sub)

	id := sub.id
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = lo.Reject(b.subs, func(s *subscription, _ int) bool { return s.id == id })
	}
}

// Publish delivers ev to every interested listener.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.wants(ev.Kind()) {
			s.fn(ev)
		}
	}
}

// Len returns the number of subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
