package socketio

import (
	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
)

// controlEvents are the client requests translated into session commands.
var controlEvents = []string{
	"play", "pause", "stop", "toggle", "next", "prev", "seek",
	"setRandom", "setRepeat", "removeFromQueue", "moveQueue",
	"setSleep", "command",
}

// translate maps a web UI request onto a session command. Positions and
// seek times follow the web UI conventions: seek is in seconds.
func translate(event string, args []any) (session.Command, bool) {
	data := firstMap(args)

	switch event {
	case "play":
		if v, ok := data["value"].(float64); ok {
			return session.NewCommand(session.ActionSkipToPosition, session.ArgPosition, int(v)), true
		}
		return session.NewCommand(session.ActionPlay), true
	case "pause":
		return session.NewCommand(session.ActionPause), true
	case "stop":
		return session.NewCommand(session.ActionStop), true
	case "toggle":
		return session.NewCommand(session.ActionPlayPause), true
	case "next":
		return session.NewCommand(session.ActionSkipToNext), true
	case "prev":
		return session.NewCommand(session.ActionSkipToPrevious), true

	case "seek":
		if len(args) == 0 {
			return session.Command{}, false
		}
		secs, ok := args[0].(float64)
		if !ok || secs < 0 {
			return session.Command{}, false
		}
		return session.NewCommand(session.ActionSeekTo, session.ArgProgress, int64(secs*1000)), true

	case "setRandom":
		v, ok := data["value"].(bool)
		if !ok {
			return session.Command{}, false
		}
		mode := player.ModePlaylistLoop
		if v {
			mode = player.ModeShuffle
		}
		return session.NewCommand(session.ActionSetPlayMode, session.ArgMode, mode.ID()), true

	case "setRepeat":
		repeat, _ := data["value"].(bool)
		single, _ := data["repeatSingle"].(bool)
		mode := player.ModePlaylistLoop
		switch {
		case repeat && single:
			mode = player.ModeLoop
		case single:
			mode = player.ModeSingleOnce
		}
		return session.NewCommand(session.ActionSetPlayMode, session.ArgMode, mode.ID()), true

	case "removeFromQueue":
		v, ok := data["value"].(float64)
		if !ok {
			return session.Command{}, false
		}
		return session.NewCommand(session.ActionRemoveMusicItemAt, session.ArgPosition, int(v)), true

	case "moveQueue":
		from, ok1 := data["from"].(float64)
		to, ok2 := data["to"].(float64)
		if !ok1 || !ok2 {
			return session.Command{}, false
		}
		return session.NewCommand(session.ActionMoveMusicItem, session.ArgFrom, int(from), session.ArgTo, int(to)), true

	case "setSleep":
		enabled, _ := data["enabled"].(bool)
		if !enabled {
			return session.NewCommand(session.ActionCancelSleepTimer), true
		}
		minutes, ok := data["minutes"].(float64)
		if !ok {
			return session.Command{}, false
		}
		action := player.TimerPause
		if name, ok := data["action"].(string); ok {
			if action, ok = player.ParseSleepTimerAction(name); !ok {
				return session.Command{}, false
			}
		}
		return session.NewCommand(session.ActionStartSleepTimer,
			session.ArgTime, int64(minutes*60_000), session.ArgAction, action.String()), true

	case "command":
		action, ok := data["action"].(string)
		if !ok || action == "" {
			return session.Command{}, false
		}
		cmd := session.Command{Action: action, Args: session.Args{}}
		if a, ok := data["args"].(map[string]interface{}); ok {
			cmd.Args = session.Args(a)
		}
		return cmd, true
	}
	return session.Command{}, false
}

func firstMap(args []any) map[string]interface{} {
	if len(args) > 0 {
		if m, ok := args[0].(map[string]interface{}); ok {
			return m
		}
	}
	return map[string]interface{}{}
}
