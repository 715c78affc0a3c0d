package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
)

func TestArgsNumericKinds(t *testing.T) {
	args := session.Args{
		"i8":  int8(-3),
		"u16": uint16(500),
		"f":   float64(1500),
		"s":   "x",
	}

	tests := []struct {
		key  string
		want int64
	}{
		{"i8", -3},
		{"u16", 500},
		{"f", 1500},
	}
	for _, tt := range tests {
		got, err := args.Int64(tt.key)
		if err != nil || got != tt.want {
			t.Errorf("%s: expected %d, got %d (%v)", tt.key, tt.want, got, err)
		}
	}

	if _, err := args.Int64("missing"); !errors.Is(err, session.ErrMissingArg) {
		t.Errorf("expected ErrMissingArg, got %v", err)
	}
	if _, err := args.Int64("s"); err == nil {
		t.Error("expected type error for a string")
	}
	if f, _ := args.Float("u16"); f != 500 {
		t.Errorf("expected float 500, got %v", f)
	}
}

func TestEventSurvivesJSON(t *testing.T) {
	tr := song("a")
	msg, err := session.EncodeEvent(player.TrackChanged{Track: &tr, Position: 2, Progress: 1200, UpdateTime: 99})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded session.Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	ev, err := session.DecodeEvent(decoded)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	tc, ok := ev.(player.TrackChanged)
	if !ok {
		t.Fatalf("expected TrackChanged, got %T", ev)
	}
	if tc.Track == nil || !tc.Track.Equal(tr) || tc.Position != 2 || tc.Progress != 1200 || tc.UpdateTime != 99 {
		t.Errorf("expected decoded track change, got %+v", tc)
	}
}

func TestEventSurvivesMsgpack(t *testing.T) {
	p := playlist.NewBuilder().SetName("mix").Append(song("a")).Append(song("b")).Build()
	msg, err := session.EncodeEvent(player.PlaylistChanged{Position: 1, Playlist: p})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	data, err := msgpack.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded session.Message
	if err := msgpack.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	ev, err := session.DecodeEvent(decoded)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	pc := ev.(player.PlaylistChanged)
	if pc.Position != 1 || pc.Playlist.Name() != "mix" || pc.Playlist.Size() != 2 {
		t.Errorf("expected mix with 2 items at 1, got %s/%d at %d", pc.Playlist.Name(), pc.Playlist.Size(), pc.Position)
	}
}

func TestDecodeEventRejectsUnknown(t *testing.T) {
	if _, err := session.DecodeEvent(session.Message{Event: "bogus"}); !errors.Is(err, session.ErrUnknownEvent) {
		t.Errorf("expected ErrUnknownEvent, got %v", err)
	}
	if _, err := session.DecodeEvent(session.Message{Event: "paused"}); !errors.Is(err, session.ErrMissingArg) {
		t.Errorf("expected ErrMissingArg, got %v", err)
	}
}

func TestSleepTimerActionOnTheWire(t *testing.T) {
	msg, _ := session.EncodeEvent(player.SleepTimerStart{Time: 60_000, StartTime: 5, Action: player.TimerShutdown})
	ev, err := session.DecodeEvent(msg)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if st := ev.(player.SleepTimerStart); st.Action != player.TimerShutdown || st.Time != 60_000 {
		t.Errorf("expected shutdown timer of 60000, got %+v", st)
	}
}

func TestDispatchErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.host.Dispatch(ctx, session.NewCommand("bogus")); !errors.Is(err, session.ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if err := f.host.Dispatch(ctx, session.NewCommand(session.ActionSeekTo)); !errors.Is(err, session.ErrMissingArg) {
		t.Errorf("expected ErrMissingArg, got %v", err)
	}
	if err := f.host.Dispatch(ctx, session.NewCommand(session.ActionStartSleepTimer, session.ArgTime, -1)); !errors.Is(err, session.ErrInvalidTime) {
		t.Errorf("expected ErrInvalidTime, got %v", err)
	}
}

func TestDispatchPlaylistCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := playlist.NewBuilder().Append(song("a")).Append(song("b")).Build()
	data, _ := player.EncodePlaylist(p)
	err := f.host.Dispatch(ctx, session.NewCommand(session.ActionSetPlaylist,
		session.ArgPlaylist, data, session.ArgPosition, 1, session.ArgPlay, true))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	f.waitTrack(t, "b")

	c, _ := player.EncodeTrack(song("c"))
	if err := f.host.Dispatch(ctx, session.NewCommand(session.ActionAppendMusicItem, session.ArgTrack, c)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := f.host.Dispatch(ctx, session.NewCommand(session.ActionMoveMusicItem, session.ArgFrom, 2, session.ArgTo, 0)); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	waitFor(t, "playlist edit", func() bool {
		items := f.host.Playlist().Items()
		return len(items) == 3 && items[0].ID == "c"
	})
	if pos := f.host.State().Position; pos != 2 {
		t.Errorf("expected current track at 2, got %d", pos)
	}

	if err := f.host.Dispatch(ctx, session.NewCommand(session.ActionSetPlayMode, session.ArgMode, player.ModeLoop.ID())); err != nil {
		t.Fatalf("set mode failed: %v", err)
	}
	if m := f.host.State().Mode; m != player.ModeLoop {
		t.Errorf("expected loop mode, got %v", m)
	}
}

func TestDispatchSettingsPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.host.Dispatch(ctx, session.NewCommand(session.ActionSetSoundQuality, session.ArgQuality, int(player.QualityHigh))); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if err := f.host.Dispatch(ctx, session.NewCommand(session.ActionSetOnlyWifiNetwork, session.ArgEnabled, true)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	s, err := player.NewConfig(f.backend, "test").Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.SoundQuality != player.QualityHigh || !s.OnlyWifiNetwork {
		t.Errorf("expected high/wifi-only, got %+v", s)
	}
	if got := f.host.Settings(); got.SoundQuality != player.QualityHigh {
		t.Errorf("expected engine quality high, got %v", got.SoundQuality)
	}
}

func TestPipeSync(t *testing.T) {
	f := newFixture(t)
	f.play(t, "a")

	ch := session.Pipe(f.host)
	defer ch.Close()

	if err := ch.Send(context.Background(), session.NewCommand(session.ActionSync, session.ArgToken, "tok")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch.Messages():
			if msg.Event != session.EventSync {
				continue
			}
			token, s, p, err := session.DecodeSync(msg)
			if err != nil {
				t.Fatalf("DecodeSync failed: %v", err)
			}
			if token != "tok" || s.Track == nil || s.Track.ID != "a" || p.Size() != 1 {
				t.Errorf("expected sync of a for tok, got %s %+v %d", token, s.Track, p.Size())
			}
			if s.Playback != player.StatePlaying {
				t.Errorf("expected playing, got %v", s.Playback)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for sync")
		}
	}
}

func TestPipeClosedByShutdown(t *testing.T) {
	f := newFixture(t)
	ch := session.Pipe(f.host)

	go f.host.Shutdown()

	var last string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-ch.Messages():
			if !ok {
				if last != "shutdown" {
					t.Errorf("expected shutdown before close, got %q", last)
				}
				if err := ch.Send(context.Background(), session.NewCommand(session.ActionPlay)); err == nil {
					t.Error("expected send to fail after shutdown")
				}
				return
			}
			last = msg.Event
		case <-timeout:
			t.Fatal("timed out waiting for pipe close")
		}
	}
}
