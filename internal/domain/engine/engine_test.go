package engine_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/infra/store"
)

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := engine.New(engine.Options{}); !errors.Is(err, engine.ErrMissing) {
		t.Errorf("expected ErrMissing, got %v", err)
	}
}

func TestBasicPlayback(t *testing.T) {
	h := newHarness(t)
	p := playlist.NewBuilder().Append(song("a", 10_000)).Append(song("b", 20_000)).Build()

	if err := h.e.SetPlaylist(p, 0, true); err != nil {
		t.Fatalf("SetPlaylist failed: %v", err)
	}

	state := h.waitPlayback(t, player.StatePlaying)
	if state.Track == nil || state.Track.ID != "a" || state.Position != 0 {
		t.Fatalf("expected a at 0, got %+v", state.Track)
	}

	kinds := h.events.kinds()
	preparing := slices.Index(kinds, player.KindPreparing)
	prepared := slices.Index(kinds, player.KindPrepared)
	playing := slices.Index(kinds, player.KindPlaying)
	if preparing < 0 || prepared < preparing || playing < prepared {
		t.Errorf("expected preparing, prepared, playing in order, got %v", kinds)
	}

	first := h.factory.last()
	h.events.reset()
	if err := h.e.SkipToNext(); err != nil {
		t.Fatalf("SkipToNext failed: %v", err)
	}

	waitFor(t, "track b playing", func() bool {
		s := h.e.State()
		return s.Playback == player.StatePlaying && s.Track != nil && s.Track.ID == "b"
	})
	if state := h.e.State(); state.Position != 1 {
		t.Errorf("expected position 1, got %d", state.Position)
	}
	if !first.isReleased() {
		t.Error("expected previous decoder to be released")
	}
	if h.factory.count() != 2 {
		t.Errorf("expected 2 decoders, got %d", h.factory.count())
	}
}

func TestPlaylistLoopWrapsOnCompletion(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a", "b"), 1, true)
	h.waitPlayback(t, player.StatePlaying)

	h.factory.last().l.OnCompletion()

	waitFor(t, "wrap to a", func() bool {
		s := h.e.State()
		return s.Track != nil && s.Track.ID == "a" && s.Playback == player.StatePlaying
	})
}

func TestSingleOnceCompletionPausesAtStart(t *testing.T) {
	h := newHarness(t, withMode(player.ModeSingleOnce))
	_ = h.e.SetPlaylist(songs("a", "b"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	d := h.factory.last()
	d.l.OnCompletion()

	state := h.waitPlayback(t, player.StatePaused)
	if state.Progress != 0 || state.Track.ID != "a" {
		t.Errorf("expected a paused at 0, got %s at %d", state.Track.ID, state.Progress)
	}
	if !d.isReleased() {
		t.Error("expected decoder to be released")
	}
}

func TestLoopCompletionKeepsTrack(t *testing.T) {
	h := newHarness(t, withMode(player.ModeLoop))
	_ = h.e.SetPlaylist(songs("a", "b"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	d := h.factory.last()
	if !d.isLooping() {
		t.Error("expected decoder to loop")
	}
	d.l.OnRepeat()
	d.l.OnCompletion()

	waitFor(t, "repeat event", func() bool {
		return slices.Contains(h.events.kinds(), player.KindRepeat)
	})
	if h.factory.count() != 1 {
		t.Errorf("expected no new decoder, got %d", h.factory.count())
	}
}

func TestPauseWhilePreparingDropsPlayIntent(t *testing.T) {
	h := newHarness(t, manualPrepare())
	_ = h.e.SetPlaylist(songs("a"), 0, true)

	waitFor(t, "decoder", func() bool { return h.factory.count() == 1 })
	if s := h.e.State(); !s.Preparing {
		t.Fatalf("expected preparing, got %v", s.Playback)
	}

	_ = h.e.Pause()
	d := h.factory.last()
	d.l.OnPrepared()

	h.waitPlayback(t, player.StatePaused)
	if d.IsPlaying() {
		t.Error("expected decoder not to be started")
	}
}

func TestPlayPauseWhilePreparing(t *testing.T) {
	h := newHarness(t, manualPrepare())
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	waitFor(t, "decoder", func() bool { return h.factory.count() == 1 })

	_ = h.e.PlayPause()
	_ = h.e.Play()
	h.factory.last().l.OnPrepared()

	h.waitPlayback(t, player.StatePlaying)
}

func TestSeekWhilePreparingThenPlays(t *testing.T) {
	h := newHarness(t, manualPrepare())
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	waitFor(t, "decoder", func() bool { return h.factory.count() == 1 })

	_ = h.e.SeekTo(5000)
	d := h.factory.last()
	d.l.OnPrepared()

	state := h.waitPlayback(t, player.StatePlaying)
	if got := d.seekLog(); !slices.Equal(got, []int64{5000}) {
		t.Errorf("expected one seek to 5000, got %v", got)
	}
	if state.Progress != 5000 {
		t.Errorf("expected progress 5000, got %d", state.Progress)
	}
}

func TestRestoredPositionIsSoughtBeforePlaying(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, false)
	waitFor(t, "track a", func() bool { return h.e.State().Track != nil })

	_ = h.e.SeekTo(4000)
	waitFor(t, "progress 4000", func() bool { return h.e.State().Progress == 4000 })
	if h.factory.count() != 0 {
		t.Fatal("expected seek without a decoder to be a position update")
	}

	_ = h.e.Play()
	h.waitPlayback(t, player.StatePlaying)
	if got := h.factory.last().seekLog(); !slices.Equal(got, []int64{4000}) {
		t.Errorf("expected seek to 4000 before playing, got %v", got)
	}
}

func TestSeekClampedToDurationWithoutDecoder(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, false)
	waitFor(t, "track a", func() bool { return h.e.State().Track != nil })

	_ = h.e.SeekTo(99_000)
	waitFor(t, "clamped progress", func() bool { return h.e.State().Progress == 10_000 })
}

func TestForbidSeek(t *testing.T) {
	h := newHarness(t)
	live := song("live", 0)
	live.ForbidSeek = true
	_ = h.e.SetPlaylist(playlist.NewBuilder().Append(live).Build(), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	_ = h.e.SeekTo(1000)
	_ = h.e.FastForward()
	_ = h.e.Rewind()

	if got := h.factory.last().seekLog(); len(got) != 0 {
		t.Errorf("expected no seeks, got %v", got)
	}
	if s := h.e.State(); s.Progress != 0 {
		t.Errorf("expected progress 0, got %d", s.Progress)
	}
}

func TestFastForwardAndRewind(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)
	d := h.factory.last()

	_ = h.e.FastForward()
	waitFor(t, "forward seek", func() bool { return len(d.seekLog()) == 1 })
	_ = h.e.Rewind()
	waitFor(t, "rewind seek", func() bool { return len(d.seekLog()) == 2 })

	if got := d.seekLog(); got[0] != 10_000 || got[1] != 0 {
		t.Errorf("expected [10000 0], got %v", got)
	}
}

func TestResolveFailureEntersError(t *testing.T) {
	h := newHarness(t)
	h.resolver.err = errResolve

	_ = h.e.SetPlaylist(songs("a", "b"), 0, true)
	state := h.waitPlayback(t, player.StateError)

	if state.ErrorCode != player.ErrGetURLFailed {
		t.Errorf("expected GET_URL_FAILED, got %v", state.ErrorCode)
	}
	if state.Preparing || state.Prepared {
		t.Error("expected prepare flags cleared")
	}

	h.resolver.mu.Lock()
	h.resolver.err = nil
	h.resolver.mu.Unlock()

	_ = h.e.SkipToNext()
	state = h.waitPlayback(t, player.StatePlaying)
	if state.ErrorCode != player.ErrNone {
		t.Errorf("expected error cleared, got %v", state.ErrorCode)
	}
}

func TestDecoderErrorTearsDown(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	d := h.factory.last()
	d.l.OnError(player.ErrorCode(99), "")

	state := h.waitPlayback(t, player.StateError)
	if state.ErrorCode != player.ErrUnknown {
		t.Errorf("expected UNKNOWN_ERROR, got %v", state.ErrorCode)
	}
	if !d.isReleased() {
		t.Error("expected decoder released")
	}
}

func TestStaleDecoderCallbacksAreIgnored(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a", "b"), 0, true)
	h.waitPlayback(t, player.StatePlaying)
	stale := h.factory.last()

	_ = h.e.SkipToNext()
	waitFor(t, "track b", func() bool {
		s := h.e.State()
		return s.Track.ID == "b" && s.Playback == player.StatePlaying
	})

	stale.l.OnError(player.ErrNetwork, "late")
	stale.l.OnCompletion()
	_ = h.e.Play()

	if s := h.e.State(); s.Playback != player.StatePlaying || s.Track.ID != "b" {
		t.Errorf("expected b still playing, got %v %s", s.Playback, s.Track.ID)
	}
}

func TestOnlyWifiRejectsUncachedTrack(t *testing.T) {
	h := newHarness(t, func(_ *harness, o *engine.Options) {
		o.Settings.OnlyWifiNetwork = true
		o.Network = fakeNetwork{n: engine.Network{Connected: true}}
		o.Cache = fakeCache{cached: false}
	})

	_ = h.e.SetPlaylist(songs("a"), 0, true)
	state := h.waitPlayback(t, player.StateError)
	if state.ErrorCode != player.ErrOnlyWifiNetwork {
		t.Errorf("expected ONLY_WIFI_NETWORK, got %v", state.ErrorCode)
	}
	if h.factory.count() != 0 {
		t.Error("expected no decoder")
	}
}

func TestOnlyWifiAllowsCachedTrack(t *testing.T) {
	h := newHarness(t, func(_ *harness, o *engine.Options) {
		o.Settings.OnlyWifiNetwork = true
		o.Network = fakeNetwork{n: engine.Network{Connected: true}}
		o.Cache = fakeCache{cached: true}
	})

	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)
}

func TestStop(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)
	d := h.factory.last()

	_ = h.e.Stop()
	state := h.waitPlayback(t, player.StateStopped)
	if state.Prepared || state.Progress != 0 || !d.isReleased() {
		t.Errorf("expected released stop at 0, got %+v", state)
	}
}

func TestSetSpeedClamps(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	_ = h.e.SetSpeed(42)
	if s := h.e.State(); s.Speed != player.MaxSpeed {
		t.Errorf("expected %v, got %v", player.MaxSpeed, s.Speed)
	}
	_ = h.e.SetSpeed(0)
	if s := h.e.State(); s.Speed != player.MinSpeed {
		t.Errorf("expected %v, got %v", player.MinSpeed, s.Speed)
	}
}

func TestSetPlayModeUpdatesLooping(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	_ = h.e.SetPlayMode(player.ModeLoop)
	if !h.factory.last().isLooping() {
		t.Error("expected decoder looping")
	}
	if s := h.e.State(); s.Mode != player.ModeLoop {
		t.Errorf("expected loop mode, got %v", s.Mode)
	}
}

func TestSingleTrackShuffle(t *testing.T) {
	h := newHarness(t, withMode(player.ModeShuffle))
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	_ = h.e.SkipToNext()
	waitFor(t, "a replayed", func() bool { return h.factory.count() == 2 })
	state := h.waitPlayback(t, player.StatePlaying)
	if state.Position != 0 || state.Track.ID != "a" {
		t.Errorf("expected a at 0, got %s at %d", state.Track.ID, state.Position)
	}
}

func TestSoundQualityChangeReprepares(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	first := h.factory.last()
	_ = h.e.SeekTo(3000)
	waitFor(t, "seek", func() bool { return h.e.State().Progress == 3000 })

	_ = h.e.SetSoundQuality(player.QualityHigh)
	waitFor(t, "second decoder", func() bool { return h.factory.count() == 2 })
	h.waitPlayback(t, player.StatePlaying)

	second := h.factory.last()
	if !first.isReleased() {
		t.Error("expected first decoder released")
	}
	if second.uri != "file:///music/a.flac?quality=high" {
		t.Errorf("expected high quality uri, got %q", second.uri)
	}
	if log := second.seekLog(); len(log) == 0 || log[len(log)-1] != 3000 {
		t.Errorf("expected resume at 3000, got %v", log)
	}
}

func TestFocusTransientLossResumes(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	l := h.focus.listener()
	l.OnLossTransient()
	h.waitPlayback(t, player.StatePaused)

	l.OnGain(true, false)
	h.waitPlayback(t, player.StatePlaying)
}

func TestFocusLossDoesNotResume(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)

	l := h.focus.listener()
	l.OnLoss()
	h.waitPlayback(t, player.StatePaused)

	l.OnGain(true, false)
	_ = h.e.SetSpeed(1) // round trip through the loop
	if s := h.e.State(); s.Playback != player.StatePaused {
		t.Errorf("expected to stay paused, got %v", s.Playback)
	}
}

func TestCommandsDeferredWhilePlaylistLoads(t *testing.T) {
	backend := &gatedBackend{Backend: store.NewMemory(), gate: make(chan struct{})}
	seed := playlist.NewManager(backend.Backend, "test")
	if err := seed.Save(context.Background(), songs("a", "b", "c")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	h := newHarness(t, func(_ *harness, o *engine.Options) {
		o.Playlists = playlist.NewManager(backend, "test")
		o.State.Track = songs("a").Items()[0].Ptr()
		o.State.Playback = player.StatePaused
	})

	_ = h.e.SkipToNext()
	if h.factory.count() != 0 {
		t.Fatal("expected skip to wait for the playlist")
	}

	backend.open()
	waitFor(t, "track b playing", func() bool {
		s := h.e.State()
		return s.Track.ID == "b" && s.Playback == player.StatePlaying
	})
	if got := h.e.Playlist().Size(); got != 3 {
		t.Errorf("expected restored playlist of 3, got %d", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	_ = h.e.SetPlaylist(songs("a"), 0, true)
	h.waitPlayback(t, player.StatePlaying)
	d := h.factory.last()

	if err := h.e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := h.e.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !d.isReleased() {
		t.Error("expected decoder released")
	}
	if err := h.e.Play(); !errors.Is(err, engine.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
