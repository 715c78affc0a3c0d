// Package session hosts one playback engine and exposes it to clients.
//
// The host mirrors engine events into persistent storage, drives the
// notification, play history, idle shutdown and sleep timer, and speaks a
// small command/message protocol to any number of client sinks.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/audio"
	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
	"github.com/edumarques81/stellar-offline-player/internal/infra/store"
	"github.com/edumarques81/stellar-offline-player/internal/worker"
)

// ErrInvalidTime is returned for a negative sleep timer duration.
var ErrInvalidTime = errors.New("sleep timer time must be >= 0")

// ErrShutdown is returned by commands issued after Shutdown.
var ErrShutdown = errors.New("session is shut down")

// Notifier shows the playing track to the user.
type Notifier interface {
	Update(s player.State)
	Hide()
}

// HistoryRecorder records played tracks.
type HistoryRecorder interface {
	Record(ctx context.Context, t track.Track) error
}

// Sink receives messages for one client. Send must not block.
type Sink interface {
	Send(msg Message)
	Close()
}

// Options configures a Host.
type Options struct {
	PlayerID string
	Backend  store.Backend
	Decoders engine.DecoderFactory
	Resolver engine.Resolver

	// Optional collaborators.
	Cache    engine.CacheChecker
	Focus    engine.AudioFocus
	Phone    engine.PhoneState
	Noisy    engine.NoisyDetector
	Network  engine.NetworkMonitor
	Notifier Notifier
	History  HistoryRecorder
	Pool     *worker.Pool

	// OnAudioStatus receives effect and output format changes.
	OnAudioStatus func(audio.Status)

	IdleMinutes      int
	IdleUnit         time.Duration // scales IdleMinutes, defaults to a minute
	ClickWindow      time.Duration
	ProgressInterval time.Duration
	Clock            func() time.Time
}

// Host owns one engine and everything around it.
type Host struct {
	id        string
	engine    *engine.Engine
	audio     *audio.Controller
	config    *player.Config
	persister *persister
	notifier  Notifier
	history   HistoryRecorder
	pool      *worker.Pool
	ownPool   bool
	now       func() time.Time
	clicks    *clicker

	mu          sync.Mutex
	sinks       map[uint64]Sink
	nextSink    uint64
	sleepTimer  *time.Timer
	sleepGen    uint64
	idleMinutes int
	idleUnit    time.Duration
	idleTimer   *time.Timer
	shownTrack  bool
	closed      bool

	unsubscribe  func()
	shutdownOnce sync.Once
	done         chan struct{}
}

// New restores the persisted state and settings of opts.PlayerID and starts
// its engine.
func New(ctx context.Context, opts Options) (*Host, error) {
	if opts.Backend == nil {
		return nil, engine.ErrMissing
	}

	ps := player.NewPersistentState(opts.Backend, opts.PlayerID)
	state, err := ps.Load(ctx)
	if err != nil {
		return nil, err
	}
	config := player.NewConfig(opts.Backend, opts.PlayerID)
	settings, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}

	h := &Host{
		id:       opts.PlayerID,
		config:   config,
		notifier: opts.Notifier,
		history:  opts.History,
		pool:     opts.Pool,
		now:      opts.Clock,
		idleUnit: opts.IdleUnit,
		sinks:    make(map[uint64]Sink),
		done:     make(chan struct{}),
	}
	if h.notifier == nil {
		h.notifier = LogNotifier{}
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.idleUnit <= 0 {
		h.idleUnit = time.Minute
	}
	if h.pool == nil {
		h.pool = worker.New(worker.WithName("session-" + opts.PlayerID))
		h.ownPool = true
	}
	h.audio = audio.NewController(opts.OnAudioStatus)
	h.persister = newPersister(ps, h.pool)
	h.clicks = newClicker(opts.ClickWindow, h.onClicks)

	h.engine, err = engine.New(engine.Options{
		PlayerID:         opts.PlayerID,
		Decoders:         opts.Decoders,
		Resolver:         opts.Resolver,
		Playlists:        playlist.NewManager(opts.Backend, opts.PlayerID),
		Cache:            opts.Cache,
		Effects:          h.audio,
		Focus:            opts.Focus,
		Phone:            opts.Phone,
		Noisy:            opts.Noisy,
		Network:          opts.Network,
		Pool:             h.pool,
		State:            state,
		Settings:         settings,
		Clock:            opts.Clock,
		ProgressInterval: opts.ProgressInterval,
	})
	if err != nil {
		return nil, err
	}
	h.unsubscribe = h.engine.Subscribe(h.onEvent)
	h.engine.Start()
	h.SetMaxIdleTime(opts.IdleMinutes)

	log.Info().
		Str("player", h.id).
		Str("playback", state.Playback.String()).
		Int("position", state.Position).
		Msg("Session host started")
	return h, nil
}

// Engine returns the hosted engine.
func (h *Host) Engine() *engine.Engine { return h.engine }

// Audio returns the effect controller of the audio session.
func (h *Host) Audio() *audio.Controller { return h.audio }

// PlayerID returns the id of the hosted player.
func (h *Host) PlayerID() string { return h.id }

// State returns a snapshot of the player state.
func (h *Host) State() player.State { return h.engine.State() }

// Playlist returns the active playlist.
func (h *Host) Playlist() playlist.Playlist { return h.engine.Playlist() }

// Settings returns the player settings.
func (h *Host) Settings() player.Settings { return h.engine.Settings() }

// Done is closed once the host has shut down.
func (h *Host) Done() <-chan struct{} { return h.done }

// Subscribe adds a client sink. The returned function removes it.
func (h *Host) Subscribe(s Sink) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		s.Close()
		return func() {}
	}
	h.nextSink++
	id := h.nextSink
	h.sinks[id] = s
	log.Debug().Str("player", h.id).Uint64("sink", id).Msg("Client subscribed")

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.sinks, id)
	}
}

// Clients returns the number of subscribed sinks.
func (h *Host) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sinks)
}

func (h *Host) broadcast(msg Message) {
	h.mu.Lock()
	sinks := make([]Sink, 0, len(h.sinks))
	for _, s := range h.sinks {
		sinks = append(sinks, s)
	}
	h.mu.Unlock()

	for _, s := range sinks {
		s.Send(msg)
	}
}

// Sync answers a client's sync request with the full state and playlist.
// The reply is ordered after every event already sent.
func (h *Host) Sync(token string) error {
	log.Debug().Str("player", h.id).Str("token", token).Msg("sync")
	return h.engine.Inspect(func(s player.State, p playlist.Playlist) {
		msg, err := SyncMessage(token, s, p)
		if err != nil {
			log.Error().Err(err).Str("player", h.id).Msg("Failed to encode sync reply")
			return
		}
		h.broadcast(msg)
	})
}

// persisted are the event kinds that change a persistent field.
var persisted = map[player.Kind]bool{
	player.KindPlaying:         true,
	player.KindPaused:          true,
	player.KindStopped:         true,
	player.KindProgress:        true,
	player.KindTrackChanged:    true,
	player.KindPlaylistChanged: true,
	player.KindPlayModeChanged: true,
	player.KindSpeedChanged:    true,
	player.KindRepeat:          true,
	player.KindSeekComplete:    true,
}

// onEvent runs on the engine goroutine.
func (h *Host) onEvent(ev player.Event) {
	s := h.engine.State()
	kind := ev.Kind()

	if persisted[kind] {
		h.persister.save(s)
	}

	switch e := ev.(type) {
	case player.TrackChanged:
		if e.Track != nil {
			h.record(*e.Track)
		}
		h.updateNotification(s)
	case player.Playing, player.Paused, player.Prepared, player.Failed:
		h.updateNotification(s)
	case player.Stopped:
		h.hideNotification()
	}

	switch kind {
	case player.KindPreparing, player.KindPrepared, player.KindPlaying, player.KindPaused,
		player.KindStopped, player.KindStalled, player.KindError, player.KindTrackChanged:
		h.checkIdle(s)
	}

	msg, err := EncodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("event", kind.String()).Msg("Failed to encode event")
		return
	}
	h.broadcast(msg)
}

func (h *Host) updateNotification(s player.State) {
	if s.Track == nil {
		h.hideNotification()
		return
	}
	h.mu.Lock()
	h.shownTrack = true
	h.mu.Unlock()
	h.notifier.Update(s)
}

func (h *Host) hideNotification() {
	h.mu.Lock()
	shown := h.shownTrack
	h.shownTrack = false
	h.mu.Unlock()
	if shown {
		h.notifier.Hide()
	}
}

func (h *Host) record(t track.Track) {
	if h.history == nil {
		return
	}
	h.pool.Go(context.Background(), func(ctx context.Context) {
		if err := h.history.Record(ctx, t); err != nil {
			log.Warn().Err(err).Str("track", t.ID).Msg("Failed to record history")
		}
	})
}

// Shutdown pauses and stops playback, cancels the sleep timer, notifies
// clients and closes them. It runs once.
func (h *Host) Shutdown() {
	h.shutdownOnce.Do(h.shutdown)
	<-h.done
}

func (h *Host) shutdown() {
	log.Info().Str("player", h.id).Msg("Session host shutting down")

	h.cancelIdleTimer()
	h.clicks.stop()

	if h.engine.State().IsPlaying() {
		if err := h.engine.Pause(); err != nil {
			log.Warn().Err(err).Msg("Failed to pause on shutdown")
		}
	}
	// Keep the paused position; stopping would persist progress 0.
	h.persister.flush(h.engine.State())
	h.persister.close()

	if err := h.engine.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop on shutdown")
	}
	h.CancelSleepTimer()
	if err := h.engine.NotifyShutdown(); err != nil {
		log.Warn().Err(err).Msg("Failed to publish shutdown")
	}
	h.hideNotification()

	h.unsubscribe()
	if err := h.engine.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close engine")
	}

	h.mu.Lock()
	h.closed = true
	sinks := h.sinks
	h.sinks = make(map[uint64]Sink)
	h.mu.Unlock()
	for _, s := range sinks {
		s.Close()
	}

	if h.ownPool {
		h.pool.Close()
	}
	close(h.done)
	log.Info().Str("player", h.id).Msg("Session host stopped")
}

// Close is Shutdown.
func (h *Host) Close() error {
	h.Shutdown()
	return nil
}
