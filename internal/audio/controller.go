// Package audio provides the audio effect controller, output format
// detection and the volume fader used for ducking.
package audio

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// EffectConfig is the audio effect configuration stored as an opaque blob
// in the player config.
type EffectConfig struct {
	Preset      string `json:"preset,omitempty"`
	BassBoost   int    `json:"bassBoost"`       // strength 0-1000
	Virtualizer int    `json:"virtualizer"`     // strength 0-1000
	Bands       []int  `json:"bands,omitempty"` // equalizer gains in millibels
}

// ParseEffectConfig decodes a stored configuration. Empty data yields the
// zero configuration.
func ParseEffectConfig(data []byte) (EffectConfig, error) {
	var c EffectConfig
	if len(data) == 0 {
		return c, nil
	}
	err := json.Unmarshal(data, &c)
	return c, err
}

// Bytes encodes the configuration.
func (c EffectConfig) Bytes() []byte {
	data, _ := json.Marshal(c)
	return data
}

// AudioFormat represents the current audio output format.
type AudioFormat struct {
	SampleRate int    `json:"sampleRate"` // Hz
	BitDepth   int    `json:"bitDepth"`
	Channels   int    `json:"channels"`
	Format     string `json:"format"` // "PCM", "DSD64", ...
}

// Status is the effect and output status of the audio session.
type Status struct {
	Attached  bool         `json:"attached"`
	SessionID int          `json:"sessionId"`
	Config    EffectConfig `json:"config"`
	Format    *AudioFormat `json:"format"`
}

// Controller tracks audio effects for the current audio session.
// It implements the engine's effect manager.
type Controller struct {
	mu        sync.RWMutex
	config    EffectConfig
	attached  bool
	sessionID int
	format    *AudioFormat
	onChange  func(Status)
}

// NewController creates a controller. onChange, if set, is called after
// every status change.
func NewController(onChange func(Status)) *Controller {
	return &Controller{onChange: onChange}
}

// Init loads the stored configuration.
func (c *Controller) Init(config []byte) {
	c.UpdateConfig(config)
}

// UpdateConfig replaces the configuration. Invalid data keeps the previous one.
func (c *Controller) UpdateConfig(config []byte) {
	parsed, err := ParseEffectConfig(config)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring invalid audio effect config")
		return
	}

	c.mu.Lock()
	c.config = parsed
	c.mu.Unlock()

	log.Debug().Interface("config", parsed).Msg("Audio effect config updated")
	c.changed()
}

// Attach applies the effects to an audio session.
func (c *Controller) Attach(sessionID int) {
	c.mu.Lock()
	c.attached = true
	c.sessionID = sessionID
	c.mu.Unlock()

	log.Debug().Int("session", sessionID).Msg("Audio effects attached")
	c.changed()
}

// Detach removes the effects from the current session.
func (c *Controller) Detach() {
	c.mu.Lock()
	wasAttached := c.attached
	c.attached = false
	c.sessionID = 0
	c.mu.Unlock()

	if wasAttached {
		log.Debug().Msg("Audio effects detached")
		c.changed()
	}
}

// Release detaches and forgets the output format.
func (c *Controller) Release() {
	c.Detach()
	c.mu.Lock()
	c.format = nil
	c.mu.Unlock()
}

// GetStatus returns the current status.
func (c *Controller) GetStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

// UpdateFormat records the output format reported by the decoder backend
// as "samplerate:bits:channels" (e.g. "192000:24:2"). It reports whether the
// format changed.
func (c *Controller) UpdateFormat(audio string) bool {
	var next *AudioFormat
	if audio != "" {
		next = ParseFormat(audio)
	}

	c.mu.Lock()
	changed := !formatEqual(c.format, next)
	c.format = next
	c.mu.Unlock()

	if changed {
		c.changed()
	}
	return changed
}

func (c *Controller) statusLocked() Status {
	s := Status{
		Attached:  c.attached,
		SessionID: c.sessionID,
		Config:    c.config,
	}
	if c.format != nil {
		f := *c.format
		s.Format = &f
	}
	return s
}

func (c *Controller) changed() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.GetStatus())
}

// ParseFormat parses "samplerate:bits:channels". DSD is recognised by its
// sample rate.
func ParseFormat(audio string) *AudioFormat {
	parts := strings.Split(audio, ":")
	if len(parts) < 2 {
		return nil
	}

	sampleRate, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil
	}
	bitDepth, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil
	}

	channels := 2
	if len(parts) >= 3 {
		if ch, err := strconv.Atoi(parts[2]); err == nil {
			channels = ch
		}
	}

	return &AudioFormat{
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
		Channels:   channels,
		Format:     formatType(sampleRate),
	}
}

func formatType(sampleRate int) string {
	switch sampleRate {
	case 2822400:
		return "DSD64"
	case 5644800:
		return "DSD128"
	case 11289600:
		return "DSD256"
	case 22579200:
		return "DSD512"
	default:
		return "PCM"
	}
}

func formatEqual(a, b *AudioFormat) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
