package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
	"github.com/edumarques81/stellar-offline-player/internal/infra/store"
)

type fakeDecoder struct {
	mu          sync.Mutex
	l           engine.DecoderListener
	uri         string
	autoPrepare bool
	playing     bool
	released    bool
	looping     bool
	progress    int64
	duration    int64
	speed       float64
	seeks       []int64
}

func (d *fakeDecoder) Prepare() error {
	if d.autoPrepare {
		go d.l.OnPrepared()
	}
	return nil
}

func (d *fakeDecoder) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = true
	return nil
}

func (d *fakeDecoder) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
	return nil
}

func (d *fakeDecoder) Stop() error {
	return d.Pause()
}

func (d *fakeDecoder) SeekTo(ms int64) error {
	d.mu.Lock()
	d.progress = ms
	d.seeks = append(d.seeks, ms)
	d.mu.Unlock()
	go d.l.OnSeekComplete()
	return nil
}

func (d *fakeDecoder) SetSpeed(speed float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = speed
	return nil
}

func (d *fakeDecoder) SetVolume(float64) {}

func (d *fakeDecoder) SetLooping(looping bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.looping = looping
}

func (d *fakeDecoder) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.released = true
	d.playing = false
}

func (d *fakeDecoder) Progress() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.progress
}

func (d *fakeDecoder) Duration() int64     { return d.duration }
func (d *fakeDecoder) IsStalled() bool     { return false }
func (d *fakeDecoder) AudioSessionID() int { return 1 }

func (d *fakeDecoder) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

func (d *fakeDecoder) isReleased() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released
}

func (d *fakeDecoder) isLooping() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.looping
}

func (d *fakeDecoder) seekLog() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.seeks...)
}

type fakeFactory struct {
	mu       sync.Mutex
	manual   bool
	decoders []*fakeDecoder
}

func (f *fakeFactory) NewDecoder(uri string, t track.Track, l engine.DecoderListener) (engine.Decoder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &fakeDecoder{l: l, uri: uri, autoPrepare: !f.manual, duration: t.Duration}
	f.decoders = append(f.decoders, d)
	return d, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.decoders)
}

func (f *fakeFactory) last() *fakeDecoder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.decoders) == 0 {
		return nil
	}
	return f.decoders[len(f.decoders)-1]
}

type fakeResolver struct {
	mu  sync.Mutex
	err error
}

func (r *fakeResolver) Resolve(_ context.Context, t track.Track, q player.SoundQuality) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	return fmt.Sprintf("%s?quality=%s", t.URI, q), nil
}

type fakeCache struct {
	cached bool
}

func (c fakeCache) IsCached(context.Context, track.Track, player.SoundQuality) (bool, error) {
	return c.cached, nil
}

type fakeNetwork struct {
	n engine.Network
}

func (f fakeNetwork) Current() engine.Network               { return f.n }
func (f fakeNetwork) Subscribe(func(engine.Network)) func() { return func() {} }

type fakeFocus struct {
	mu sync.Mutex
	l  engine.FocusListener
}

func (f *fakeFocus) Request(l engine.FocusListener) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.l = l
	return true
}

func (f *fakeFocus) Abandon() {}

func (f *fakeFocus) listener() engine.FocusListener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.l
}

// gatedBackend holds every read until open is called.
type gatedBackend struct {
	store.Backend
	gate chan struct{}
}

func (b *gatedBackend) Namespace(name string) store.Namespace {
	return gatedNamespace{Namespace: b.Backend.Namespace(name), gate: b.gate}
}

func (b *gatedBackend) open() { close(b.gate) }

type gatedNamespace struct {
	store.Namespace
	gate chan struct{}
}

func (n gatedNamespace) Get(ctx context.Context, key string) ([]byte, bool, error) {
	select {
	case <-n.gate:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	return n.Namespace.Get(ctx, key)
}

type recorder struct {
	mu     sync.Mutex
	events []player.Event
}

func (r *recorder) listen(ev player.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []player.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]player.Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind()
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type harness struct {
	e        *engine.Engine
	factory  *fakeFactory
	resolver *fakeResolver
	focus    *fakeFocus
	events   *recorder
}

type harnessOption func(*harness, *engine.Options)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		factory:  &fakeFactory{},
		resolver: &fakeResolver{},
		focus:    &fakeFocus{},
		events:   &recorder{},
	}
	o := engine.Options{
		PlayerID:  "test",
		Decoders:  h.factory,
		Resolver:  h.resolver,
		Playlists: playlist.NewManager(store.NewMemory(), "test"),
		Focus:     h.focus,
		State:     player.NewState(),
	}
	for _, opt := range opts {
		opt(h, &o)
	}

	e, err := engine.New(o)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.e = e
	e.Subscribe(h.events.listen)
	e.Start()
	t.Cleanup(func() { _ = e.Close() })
	return h
}

func manualPrepare() harnessOption {
	return func(h *harness, _ *engine.Options) { h.factory.manual = true }
}

func withMode(mode player.PlayMode) harnessOption {
	return func(_ *harness, o *engine.Options) { o.State.Mode = mode }
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) waitPlayback(t *testing.T, want player.PlaybackState) player.State {
	t.Helper()
	waitFor(t, "playback "+want.String(), func() bool {
		return h.e.State().Playback == want
	})
	return h.e.State()
}

func song(id string, duration int64) track.Track {
	return track.NewBuilder().
		SetID(id).
		SetURI("file:///music/" + id + ".flac").
		SetTitle("Song " + id).
		SetDuration(duration).
		Build()
}

func songs(ids ...string) playlist.Playlist {
	b := playlist.NewBuilder().SetName("test")
	for _, id := range ids {
		b.Append(song(id, 10_000))
	}
	return b.Build()
}

var errResolve = errors.New("resolve failed")
