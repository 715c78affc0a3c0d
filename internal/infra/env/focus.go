// Package env provides headless implementations of the environment helpers
// the playback engine consults: audio focus, call state and output changes.
package env

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
)

// Focus grants audio focus on request. Operators and other local audio
// users signal loss and gain through its methods.
type Focus struct {
	mu       sync.Mutex
	listener engine.FocusListener
	refused  bool

	lossTransient bool
	canDuck       bool
}

// NewFocus returns a focus arbiter that grants every request.
func NewFocus() *Focus {
	return &Focus{}
}

// Request implements engine.AudioFocus.
func (f *Focus) Request(l engine.FocusListener) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refused {
		return false
	}
	f.listener = l
	return true
}

// Abandon implements engine.AudioFocus.
func (f *Focus) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = nil
	f.lossTransient = false
	f.canDuck = false
}

// Held reports whether a listener currently holds focus.
func (f *Focus) Held() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener != nil
}

// SetRefused makes subsequent requests fail, as when another application
// holds exclusive output.
func (f *Focus) SetRefused(refused bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refused = refused
}

// Lose signals a permanent loss to the holder.
func (f *Focus) Lose() {
	if l := f.take(false, false); l != nil {
		log.Debug().Msg("Audio focus lost")
		l.OnLoss()
	}
}

// LoseTransient signals a temporary loss. With canDuck the holder may keep
// playing at a lower volume.
func (f *Focus) LoseTransient(canDuck bool) {
	l := f.take(!canDuck, canDuck)
	if l == nil {
		return
	}
	log.Debug().Bool("canDuck", canDuck).Msg("Audio focus lost transiently")
	if canDuck {
		l.OnLossTransientCanDuck()
	} else {
		l.OnLossTransient()
	}
}

// Gain returns focus to the holder after a transient loss.
func (f *Focus) Gain() {
	f.mu.Lock()
	l := f.listener
	lossTransient, canDuck := f.lossTransient, f.canDuck
	f.lossTransient = false
	f.canDuck = false
	f.mu.Unlock()

	if l != nil {
		log.Debug().Msg("Audio focus gained")
		l.OnGain(lossTransient, canDuck)
	}
}

func (f *Focus) take(lossTransient, canDuck bool) engine.FocusListener {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lossTransient = lossTransient
	f.canDuck = canDuck
	return f.listener
}
