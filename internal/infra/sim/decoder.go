// Package sim provides a decoder that plays tracks against the wall clock
// without producing audio. It backs headless deployments and tests.
package sim

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// ErrNotPrepared is returned by control methods called before preparation.
var ErrNotPrepared = errors.New("decoder not prepared")

var sessionIDs atomic.Int64

// Factory creates simulated decoders.
type Factory struct {
	// PrepareDelay simulates decoder preparation time.
	PrepareDelay time.Duration
}

// NewFactory returns a factory with an instant prepare.
func NewFactory() *Factory {
	return &Factory{}
}

// NewDecoder implements engine.DecoderFactory.
func (f *Factory) NewDecoder(uri string, t track.Track, l engine.DecoderListener) (engine.Decoder, error) {
	return &Decoder{
		uri:       uri,
		duration:  t.Duration,
		delay:     f.PrepareDelay,
		l:         l,
		speed:     1,
		volume:    1,
		sessionID: int(sessionIDs.Add(1)),
	}, nil
}

// Decoder simulates playback of one track. A zero duration plays forever.
type Decoder struct {
	uri       string
	duration  int64
	delay     time.Duration
	l         engine.DecoderListener
	sessionID int

	mu       sync.Mutex
	prepared bool
	playing  bool
	looping  bool
	released bool
	speed    float64
	volume   float64
	base     int64
	baseAt   time.Time
	timer    *time.Timer
}

func (d *Decoder) Prepare() error {
	log.Debug().Str("uri", d.uri).Msg("Simulated prepare")
	go func() {
		if d.delay > 0 {
			time.Sleep(d.delay)
		}
		d.mu.Lock()
		if d.released {
			d.mu.Unlock()
			return
		}
		d.prepared = true
		d.mu.Unlock()
		d.l.OnPrepared()
	}()
	return nil
}

func (d *Decoder) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.prepared {
		return ErrNotPrepared
	}
	if d.playing {
		return nil
	}
	d.playing = true
	d.baseAt = time.Now()
	d.scheduleLocked()
	return nil
}

func (d *Decoder) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.prepared {
		return ErrNotPrepared
	}
	d.base = d.progressLocked()
	d.playing = false
	d.stopTimerLocked()
	return nil
}

func (d *Decoder) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	d.base = 0
	d.stopTimerLocked()
	return nil
}

func (d *Decoder) SeekTo(ms int64) error {
	d.mu.Lock()
	if !d.prepared {
		d.mu.Unlock()
		return ErrNotPrepared
	}
	d.base = d.clamp(ms)
	d.baseAt = time.Now()
	if d.playing {
		d.scheduleLocked()
	}
	d.mu.Unlock()

	go d.l.OnSeekComplete()
	return nil
}

func (d *Decoder) SetSpeed(speed float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.base = d.progressLocked()
	d.baseAt = time.Now()
	d.speed = speed
	if d.playing {
		d.scheduleLocked()
	}
	return nil
}

func (d *Decoder) SetVolume(volume float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = volume
}

// Volume returns the last volume set.
func (d *Decoder) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

func (d *Decoder) SetLooping(looping bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.looping = looping
}

func (d *Decoder) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	d.playing = false
	d.stopTimerLocked()
}

func (d *Decoder) Progress() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progressLocked()
}

func (d *Decoder) Duration() int64 { return d.duration }

func (d *Decoder) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *Decoder) IsStalled() bool     { return false }
func (d *Decoder) AudioSessionID() int { return d.sessionID }

func (d *Decoder) progressLocked() int64 {
	if !d.playing {
		return d.base
	}
	elapsed := float64(time.Since(d.baseAt).Milliseconds()) * d.speed
	return d.clamp(d.base + int64(elapsed))
}

func (d *Decoder) clamp(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	if d.duration > 0 && ms > d.duration {
		return d.duration
	}
	return ms
}

// scheduleLocked arms the end-of-track timer for the remaining time.
func (d *Decoder) scheduleLocked() {
	d.stopTimerLocked()
	if d.duration <= 0 || d.speed <= 0 {
		return
	}
	remaining := float64(d.duration-d.progressLocked()) / d.speed
	d.timer = time.AfterFunc(time.Duration(remaining)*time.Millisecond, d.finish)
}

func (d *Decoder) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Decoder) finish() {
	d.mu.Lock()
	if d.released || !d.playing {
		d.mu.Unlock()
		return
	}
	if d.looping {
		d.base = 0
		d.baseAt = time.Now()
		d.scheduleLocked()
		d.mu.Unlock()
		d.l.OnRepeat()
		return
	}
	d.playing = false
	d.base = d.duration
	d.timer = nil
	d.mu.Unlock()
	d.l.OnCompletion()
}
