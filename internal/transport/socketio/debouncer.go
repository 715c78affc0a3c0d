package socketio

import (
	"sync"
	"time"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
)

// BroadcastDebouncer collapses bursts of player events into batched broadcasts.
// Several events within the debounce window result in a single broadcast for
// each affected type (state and/or queue).
type BroadcastDebouncer struct {
	window        time.Duration
	stateCallback func()
	queueCallback func()

	mu           sync.Mutex
	pendingState bool
	pendingQueue bool
	timer        *time.Timer
	stopped      bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
// stateCallback is called when the player state needs broadcasting.
// queueCallback is called when the playlist needs broadcasting.
func NewBroadcastDebouncer(window time.Duration, stateCallback, queueCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:        window,
		stateCallback: stateCallback,
		queueCallback: queueCallback,
	}
}

// Trigger records an event of kind k. Shutdown is ignored.
func (d *BroadcastDebouncer) Trigger(k player.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch k {
	case player.KindPlaylistChanged:
		d.pendingState = true
		d.pendingQueue = true
	case player.KindShutdown:
		return
	default:
		d.pendingState = true
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	doState := d.pendingState
	doQueue := d.pendingQueue
	d.pendingState = false
	d.pendingQueue = false
	d.mu.Unlock()

	if doQueue && d.queueCallback != nil {
		d.queueCallback()
	}
	if doState && d.stateCallback != nil {
		d.stateCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingState = false
	d.pendingQueue = false
}
