package mpd

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// ErrSpeedUnsupported is returned for any speed other than 1.
var ErrSpeedUnsupported = errors.New("mpd does not support playback speed")

// Factory creates decoders that share one MPD connection. Only the most
// recent decoder receives player events.
type Factory struct {
	client   *Client
	onFormat func(audio string)

	mu      sync.Mutex
	current *Decoder
}

// NewFactory creates a factory. onFormat, if set, receives the output
// format reported by MPD ("samplerate:bits:channels").
func NewFactory(client *Client, onFormat func(audio string)) *Factory {
	return &Factory{client: client, onFormat: onFormat}
}

// NewDecoder implements engine.DecoderFactory.
func (f *Factory) NewDecoder(uri string, t track.Track, l engine.DecoderListener) (engine.Decoder, error) {
	d := &Decoder{
		client:   f.client,
		factory:  f,
		uri:      uri,
		duration: t.Duration,
		l:        l,
		volume:   1,
	}
	f.mu.Lock()
	f.current = d
	f.mu.Unlock()
	return d, nil
}

// Run forwards MPD player events to the current decoder until ctx is done.
func (f *Factory) Run(ctx context.Context) error {
	events, err := f.client.Watch("player")
	if err != nil {
		return err
	}
	log.Info().Msg("MPD player watcher started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			f.Refresh()
		}
	}
}

// Refresh reads the MPD status and applies it to the current decoder.
func (f *Factory) Refresh() {
	f.mu.Lock()
	d := f.current
	f.mu.Unlock()
	if d == nil {
		return
	}

	status, err := f.client.Status()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read MPD status")
		return
	}
	if f.onFormat != nil {
		f.onFormat(status["audio"])
	}
	d.apply(status)
}

func (f *Factory) release(d *Decoder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == d {
		f.current = nil
	}
}

// Decoder plays one track through MPD. The queue holds only this track.
type Decoder struct {
	client   *Client
	factory  *Factory
	uri      string
	duration int64
	l        engine.DecoderListener

	mu       sync.Mutex
	id       int
	prepared bool
	started  bool
	playing  bool
	looping  bool
	released bool
	volume   float64
	base     int64
	baseAt   time.Time
}

func (d *Decoder) Prepare() error {
	go func() {
		if err := d.load(); err != nil {
			log.Error().Err(err).Str("uri", d.uri).Msg("Failed to load track into MPD")
			d.l.OnError(errorCode(err), err.Error())
			return
		}
		d.mu.Lock()
		released := d.released
		d.mu.Unlock()
		if !released {
			d.l.OnPrepared()
		}
	}()
	return nil
}

func (d *Decoder) load() error {
	if err := d.client.Clear(); err != nil {
		return err
	}
	id, err := d.client.AddID(d.uri)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = id
	d.prepared = true
	return nil
}

func (d *Decoder) Start() error {
	d.mu.Lock()
	started, id, base := d.started, d.id, d.base
	d.mu.Unlock()

	if started {
		if err := d.client.Pause(false); err != nil {
			return err
		}
	} else {
		if err := d.client.PlayID(id); err != nil {
			return err
		}
		if base > 0 {
			if err := d.client.SeekCur(time.Duration(base) * time.Millisecond); err != nil {
				return err
			}
		}
	}

	d.mu.Lock()
	d.started = true
	d.playing = true
	d.baseAt = time.Now()
	d.mu.Unlock()
	return nil
}

func (d *Decoder) Pause() error {
	if err := d.client.Pause(true); err != nil {
		return err
	}
	d.mu.Lock()
	d.base = d.progressLocked()
	d.playing = false
	d.mu.Unlock()
	return nil
}

func (d *Decoder) Stop() error {
	d.mu.Lock()
	d.playing = false
	d.started = false
	d.base = 0
	d.mu.Unlock()
	return d.client.Stop()
}

func (d *Decoder) SeekTo(ms int64) error {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()

	if started {
		if err := d.client.SeekCur(time.Duration(ms) * time.Millisecond); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.base = ms
	d.baseAt = time.Now()
	d.mu.Unlock()

	go d.l.OnSeekComplete()
	return nil
}

func (d *Decoder) SetSpeed(speed float64) error {
	if speed != player.DefaultSpeed {
		return ErrSpeedUnsupported
	}
	return nil
}

func (d *Decoder) SetVolume(volume float64) {
	d.mu.Lock()
	d.volume = volume
	d.mu.Unlock()
	if err := d.client.SetVolume(int(volume * 100)); err != nil {
		log.Warn().Err(err).Msg("Failed to set MPD volume")
	}
}

func (d *Decoder) SetLooping(looping bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.looping = looping
}

func (d *Decoder) Release() {
	d.mu.Lock()
	started := d.started
	d.released = true
	d.playing = false
	d.mu.Unlock()

	d.factory.release(d)
	if started {
		if err := d.client.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop MPD on release")
		}
	}
}

func (d *Decoder) Progress() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progressLocked()
}

func (d *Decoder) Duration() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duration
}

func (d *Decoder) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *Decoder) IsStalled() bool { return false }

func (d *Decoder) AudioSessionID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

func (d *Decoder) progressLocked() int64 {
	p := d.base
	if d.playing {
		p += time.Since(d.baseAt).Milliseconds()
	}
	if d.duration > 0 && p > d.duration {
		p = d.duration
	}
	return p
}

// apply reconciles the decoder with an MPD status. A song that left the
// player while we were playing has completed.
func (d *Decoder) apply(status map[string]string) {
	d.mu.Lock()
	if d.released || !d.started {
		d.mu.Unlock()
		return
	}

	if dur, err := strconv.ParseFloat(status["duration"], 64); err == nil && dur > 0 {
		d.duration = int64(dur * 1000)
	}

	current := status["songid"] == strconv.Itoa(d.id)
	if status["state"] == "play" && current {
		if elapsed, err := strconv.ParseFloat(status["elapsed"], 64); err == nil {
			d.base = int64(elapsed * 1000)
			d.baseAt = time.Now()
		}
		d.mu.Unlock()
		return
	}

	if !d.playing || (status["state"] == "pause" && current) {
		d.mu.Unlock()
		return
	}

	looping, id := d.looping, d.id
	d.base = 0
	if !looping {
		d.playing = false
		d.started = false
		d.base = d.duration
	}
	d.baseAt = time.Now()
	d.mu.Unlock()

	if looping {
		if err := d.client.PlayID(id); err != nil {
			d.l.OnError(errorCode(err), err.Error())
			return
		}
		d.l.OnRepeat()
		return
	}
	d.l.OnCompletion()
}

// errorCode maps MPD failures onto the playback error taxonomy.
func errorCode(err error) player.ErrorCode {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return player.ErrNetwork
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "[50@"), strings.Contains(msg, "No such"), strings.Contains(msg, "not found"):
		return player.ErrFileNotFound
	case strings.Contains(msg, "failed to connect"):
		return player.ErrNetwork
	default:
		return player.ErrDataLoadFailed
	}
}
