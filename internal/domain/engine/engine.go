// Package engine drives a decoder through prepare, play, pause, seek and stop
// while owning the authoritative player state and the active playlist.
//
// Every mutation runs on a single owner goroutine. Public methods post to it
// and return once the command has been applied; background work (URI
// resolution, playlist saves, cache checks) runs on a worker pool and posts
// its result back. Public methods must not be called from a Listener.
package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/audio"
	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/worker"
)

// Contract violations returned by playlist edits.
var (
	ErrOutOfRange  = errors.New("playlist index out of range")
	ErrNotEditable = errors.New("playlist is not editable")
	ErrNilTrack    = errors.New("track is nil")
	ErrClosed      = errors.New("engine closed")
	ErrMissing     = errors.New("missing collaborator")
)

const (
	// DefaultProgressInterval is how often the elapsed position is sampled while playing.
	DefaultProgressInterval = 3 * time.Second
	seekStep                = int64(15_000)
)

// Options configures an Engine.
type Options struct {
	PlayerID  string
	Decoders  DecoderFactory
	Resolver  Resolver
	Playlists *playlist.Manager

	// Optional collaborators. Nil values get permissive defaults.
	Cache   CacheChecker
	Effects EffectManager
	Focus   AudioFocus
	Phone   PhoneState
	Noisy   NoisyDetector
	Network NetworkMonitor
	Pool    *worker.Pool

	// Restored state and settings.
	State    player.State
	Settings player.Settings

	Clock            func() time.Time
	Rand             player.Rand
	ProgressInterval time.Duration
}

type snapshot struct {
	state    player.State
	playlist playlist.Playlist
	settings player.Settings
}

// Engine is the playback state machine of one player.
type Engine struct {
	id        string
	decoders  DecoderFactory
	resolver  Resolver
	playlists *playlist.Manager
	cache     CacheChecker
	effects   EffectManager
	focus     AudioFocus
	phone     PhoneState
	noisy     NoisyDetector
	network   NetworkMonitor
	pool      *worker.Pool
	ownPool   bool
	now       func() time.Time
	rnd       player.Rand
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mbox   *mailbox
	bus    *player.Bus
	snap   atomic.Pointer[snapshot]
	fader  *audio.Fader

	// Owned by the loop.
	state    player.State
	playlist playlist.Playlist
	settings player.Settings

	decoder         Decoder
	decoderGen      uint64
	effectsAttached bool

	loading              bool
	playlistLoadedAction func()
	preparedAction       func()
	seekCompleteAction   func()
	playOnPrepared       bool
	playOnSeekComplete   bool
	confirmNextPlay      bool
	resumePlay           bool

	resolveOp    *op
	loadOp       *op
	saveOp       *op
	networkOp    *op
	savedActions []func()

	stopSampler    func()
	focusHeld      bool
	phoneListening bool
	noisyListening bool
	cancelNetwork  func()
	started        bool
	closed         bool
}

// New creates an engine. Call Start to restore the playlist and begin
// processing commands.
func New(opts Options) (*Engine, error) {
	if opts.Decoders == nil || opts.Resolver == nil || opts.Playlists == nil {
		return nil, ErrMissing
	}

	e := &Engine{
		id:        opts.PlayerID,
		decoders:  opts.Decoders,
		resolver:  opts.Resolver,
		playlists: opts.Playlists,
		cache:     opts.Cache,
		effects:   opts.Effects,
		focus:     opts.Focus,
		phone:     opts.Phone,
		noisy:     opts.Noisy,
		network:   opts.Network,
		pool:      opts.Pool,
		now:       opts.Clock,
		rnd:       opts.Rand,
		interval:  opts.ProgressInterval,
		mbox:      newMailbox(),
		bus:       player.NewBus(),
		state:     opts.State.Clone(),
		playlist:  playlist.Empty(),
		settings:  opts.Settings,
	}
	if e.cache == nil {
		e.cache = notCached{}
	}
	if e.effects == nil {
		e.effects = noEffects{}
	}
	if e.focus == nil {
		e.focus = grantedFocus{}
	}
	if e.phone == nil {
		e.phone = idlePhone{}
	}
	if e.noisy == nil {
		e.noisy = quietOutput{}
	}
	if e.network == nil {
		e.network = wifiNetwork{}
	}
	if e.pool == nil {
		e.pool = worker.New(worker.WithName("engine-" + opts.PlayerID))
		e.ownPool = true
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	if e.interval <= 0 {
		e.interval = DefaultProgressInterval
	}
	if e.state.Speed == 0 {
		e.state.Speed = player.DefaultSpeed
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.fader = audio.NewFader(func(volume float64) {
		e.mbox.post(func() {
			if e.decoder != nil {
				e.decoder.SetVolume(volume)
			}
		})
	})
	e.storeSnapshot()
	return e, nil
}

// Start launches the owner loop and restores the persisted playlist.
// Playlist-dependent commands issued before the playlist is loaded are
// deferred until it is.
func (e *Engine) Start() {
	if e.started {
		return
	}
	e.started = true
	go e.mbox.run(e.storeSnapshot)

	e.mbox.post(func() {
		e.effects.Init(e.settings.AudioEffectConfig)
		e.cancelNetwork = e.network.Subscribe(func(n Network) {
			e.mbox.post(func() { e.onNetworkChanged(n) })
		})
		e.reloadPlaylist()
	})

	log.Info().
		Str("player", e.id).
		Str("playback", e.state.Playback.String()).
		Msg("Playback engine started")
}

// Close tears the engine down. Outstanding operations are disposed and the
// decoder is released. Close is idempotent.
func (e *Engine) Close() error {
	err := e.call(func() error {
		if e.closed {
			return nil
		}
		e.closed = true
		e.resolveOp.dispose()
		e.loadOp.dispose()
		e.saveOp.dispose()
		e.networkOp.dispose()
		e.releaseDecoder()
		e.abandonFocus()
		e.unregisterHelpers()
		if e.cancelNetwork != nil {
			e.cancelNetwork()
		}
		e.effects.Release()
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}

	e.mbox.close()
	<-e.mbox.done
	e.cancel()
	if e.ownPool {
		e.pool.Close()
	}
	log.Info().Str("player", e.id).Msg("Playback engine closed")
	return err
}

// Subscribe registers fn for the given event kinds, or all kinds when none
// are given. Listeners run on the engine goroutine and must not block or
// call back into the engine.
func (e *Engine) Subscribe(fn player.Listener, kinds ...player.Kind) func() {
	return e.bus.Subscribe(fn, kinds...)
}

// State returns a snapshot of the player state.
func (e *Engine) State() player.State {
	return e.snap.Load().state.Clone()
}

// Playlist returns the active playlist.
func (e *Engine) Playlist() playlist.Playlist {
	return e.snap.Load().playlist
}

// Settings returns the current player settings.
func (e *Engine) Settings() player.Settings {
	return e.snap.Load().settings
}

// Inspect runs fn on the engine goroutine with the current state and
// playlist. Anything fn publishes is ordered with respect to engine events.
func (e *Engine) Inspect(fn func(player.State, playlist.Playlist)) error {
	return e.run(func() {
		fn(e.state.Clone(), e.playlist)
	})
}

// PlayerID returns the id of the player.
func (e *Engine) PlayerID() string {
	return e.id
}

// call runs fn on the loop and waits for it.
func (e *Engine) call(fn func() error) error {
	if !e.started {
		return ErrClosed
	}
	errc := make(chan error, 1)
	ok := e.mbox.post(func() {
		if e.closed {
			errc <- ErrClosed
			return
		}
		err := fn()
		e.storeSnapshot()
		errc <- err
	})
	if !ok {
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-e.mbox.done:
		return ErrClosed
	}
}

// run is call for commands that cannot fail.
func (e *Engine) run(fn func()) error {
	return e.call(func() error {
		fn()
		return nil
	})
}

func (e *Engine) storeSnapshot() {
	e.snap.Store(&snapshot{
		state:    e.state.Clone(),
		playlist: e.playlist,
		settings: e.settings,
	})
}

// emit applies ev to the state and publishes it.
func (e *Engine) emit(ev player.Event) {
	e.state.Apply(ev)
	e.storeSnapshot()
	e.bus.Publish(ev)
}

func (e *Engine) nowMillis() int64 {
	return e.now().UnixMilli()
}
