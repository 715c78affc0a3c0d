package socketio

import (
	"testing"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name   string
		event  string
		args   []any
		action string
		key    string
		want   int64
	}{
		{"resume", "play", nil, session.ActionPlay, "", 0},
		{"play at", "play", []any{map[string]interface{}{"value": float64(3)}}, session.ActionSkipToPosition, session.ArgPosition, 3},
		{"toggle", "toggle", nil, session.ActionPlayPause, "", 0},
		{"prev", "prev", nil, session.ActionSkipToPrevious, "", 0},
		{"seek seconds", "seek", []any{float64(12.5)}, session.ActionSeekTo, session.ArgProgress, 12_500},
		{"shuffle on", "setRandom", []any{map[string]interface{}{"value": true}}, session.ActionSetPlayMode, session.ArgMode, int64(player.ModeShuffle.ID())},
		{"shuffle off", "setRandom", []any{map[string]interface{}{"value": false}}, session.ActionSetPlayMode, session.ArgMode, int64(player.ModePlaylistLoop.ID())},
		{"repeat one", "setRepeat", []any{map[string]interface{}{"value": true, "repeatSingle": true}}, session.ActionSetPlayMode, session.ArgMode, int64(player.ModeLoop.ID())},
		{"single once", "setRepeat", []any{map[string]interface{}{"value": false, "repeatSingle": true}}, session.ActionSetPlayMode, session.ArgMode, int64(player.ModeSingleOnce.ID())},
		{"remove", "removeFromQueue", []any{map[string]interface{}{"value": float64(1)}}, session.ActionRemoveMusicItemAt, session.ArgPosition, 1},
		{"move", "moveQueue", []any{map[string]interface{}{"from": float64(4), "to": float64(0)}}, session.ActionMoveMusicItem, session.ArgFrom, 4},
		{"sleep", "setSleep", []any{map[string]interface{}{"enabled": true, "minutes": float64(30)}}, session.ActionStartSleepTimer, session.ArgTime, 1_800_000},
		{"sleep off", "setSleep", []any{map[string]interface{}{"enabled": false}}, session.ActionCancelSleepTimer, "", 0},
		{"raw command", "command", []any{map[string]interface{}{"action": "seek_to", "args": map[string]interface{}{"progress": float64(900)}}}, session.ActionSeekTo, session.ArgProgress, 900},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := translate(tc.event, tc.args)
			if !ok {
				t.Fatalf("expected %s to translate", tc.event)
			}
			if cmd.Action != tc.action {
				t.Errorf("expected action %s, got %s", tc.action, cmd.Action)
			}
			if tc.key == "" {
				return
			}
			got, err := cmd.Args.Int64(tc.key)
			if err != nil {
				t.Fatalf("expected %s arg: %v", tc.key, err)
			}
			if got != tc.want {
				t.Errorf("expected %s=%d, got %d", tc.key, tc.want, got)
			}
		})
	}
}

func TestTranslateRejectsMalformed(t *testing.T) {
	tests := []struct {
		event string
		args  []any
	}{
		{"seek", nil},
		{"seek", []any{"soon"}},
		{"seek", []any{float64(-1)}},
		{"setRandom", []any{map[string]interface{}{}}},
		{"moveQueue", []any{map[string]interface{}{"from": float64(1)}}},
		{"setSleep", []any{map[string]interface{}{"enabled": true}}},
		{"setSleep", []any{map[string]interface{}{"enabled": true, "minutes": float64(5), "action": "explode"}}},
		{"command", []any{map[string]interface{}{}}},
		{"volume", []any{float64(50)}},
	}
	for _, tc := range tests {
		if _, ok := translate(tc.event, tc.args); ok {
			t.Errorf("expected %s %v to be rejected", tc.event, tc.args)
		}
	}
}

func TestEventJSONDropsBinaryArgs(t *testing.T) {
	out := eventJSON(session.Message{
		Event: "track_changed",
		Args:  session.Args{session.ArgPosition: 2, session.ArgTrack: []byte{1, 2, 3}},
	})
	args := out["args"].(session.Args)
	if _, ok := args[session.ArgTrack]; ok {
		t.Error("expected binary track to be dropped")
	}
	if args[session.ArgPosition] != 2 {
		t.Errorf("expected position 2, got %v", args[session.ArgPosition])
	}
}
