package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultClickWindow is how long the headset hook waits for another click.
const DefaultClickWindow = 300 * time.Millisecond

// clicker folds rapid clicks into one count.
type clicker struct {
	window time.Duration
	fire   func(n int)

	mu      sync.Mutex
	count   int
	timer   *time.Timer
	stopped bool
}

func newClicker(window time.Duration, fire func(n int)) *clicker {
	if window <= 0 {
		window = DefaultClickWindow
	}
	return &clicker{window: window, fire: fire}
}

func (c *clicker) click() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.count++
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.window, c.flush)
}

func (c *clicker) flush() {
	c.mu.Lock()
	n := c.count
	c.count = 0
	c.timer = nil
	stopped := c.stopped
	c.mu.Unlock()
	if n > 0 && !stopped {
		c.fire(n)
	}
}

func (c *clicker) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// HeadsetClick registers one headset hook press. Presses within the click
// window are combined and handled by OnMediaButtonClicks.
func (h *Host) HeadsetClick() {
	h.clicks.click()
}

// OnMediaButtonClicks handles n combined clicks: one toggles play/pause,
// two skips to the next track and three skips to the previous one.
func (h *Host) OnMediaButtonClicks(n int) error {
	log.Debug().Str("player", h.id).Int("clicks", n).Msg("Media button")
	switch n {
	case 1:
		return h.engine.PlayPause()
	case 2:
		return h.engine.SkipToNext()
	case 3:
		return h.engine.SkipToPrevious()
	default:
		return nil
	}
}

func (h *Host) onClicks(n int) {
	if err := h.OnMediaButtonClicks(n); err != nil {
		log.Warn().Err(err).Msg("Media button action failed")
	}
}
