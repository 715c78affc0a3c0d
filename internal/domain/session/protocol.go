package session

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Errors returned while decoding commands and messages.
var (
	ErrMissingArg    = errors.New("missing argument")
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownEvent  = errors.New("unknown event")
)

// Actions accepted by Dispatch.
const (
	ActionPlay                  = "play"
	ActionPause                 = "pause"
	ActionStop                  = "stop"
	ActionPlayPause             = "play_pause"
	ActionSeekTo                = "seek_to"
	ActionFastForward           = "fast_forward"
	ActionRewind                = "rewind"
	ActionSkipToNext            = "skip_to_next"
	ActionSkipToPrevious        = "skip_to_previous"
	ActionSkipToPosition        = "skip_to_position"
	ActionPlayPauseAt           = "play_pause_at"
	ActionSetPlayMode           = "set_play_mode"
	ActionSetSpeed              = "set_speed"
	ActionSetPlaylist           = "set_playlist"
	ActionInsertMusicItem       = "insert_music_item"
	ActionAppendMusicItem       = "append_music_item"
	ActionMoveMusicItem         = "move_music_item"
	ActionRemoveMusicItem       = "remove_music_item"
	ActionRemoveMusicItemAt     = "remove_music_item_at"
	ActionSetNextPlay           = "set_next_play"
	ActionSetSoundQuality       = "set_sound_quality"
	ActionSetAudioEffectConfig  = "set_audio_effect_config"
	ActionSetAudioEffectEnabled = "set_audio_effect_enabled"
	ActionSetOnlyWifiNetwork    = "set_only_wifi_network"
	ActionSetIgnoreAudioFocus   = "set_ignore_audio_focus"
	ActionStartSleepTimer       = "start_sleep_timer"
	ActionCancelSleepTimer      = "cancel_sleep_timer"
	ActionSync                  = "sync"
	ActionShutdown              = "shutdown"
)

// EventSync is the event name of a sync reply.
const EventSync = "sync"

// Argument names.
const (
	ArgProgress       = "progress"
	ArgUpdateTime     = "update_time"
	ArgStalled        = "stalled"
	ArgPosition       = "position"
	ArgPlay           = "play"
	ArgMode           = "mode"
	ArgSpeed          = "speed"
	ArgTrack          = "track"
	ArgPlaylist       = "playlist"
	ArgFrom           = "from"
	ArgTo             = "to"
	ArgQuality        = "quality"
	ArgConfig         = "config"
	ArgEnabled        = "enabled"
	ArgTime           = "time"
	ArgStartTime      = "start_time"
	ArgAction         = "action"
	ArgTimeUp         = "time_up"
	ArgToken          = "token"
	ArgState          = "state"
	ArgCode           = "code"
	ArgMessage        = "message"
	ArgAudioSessionID = "audio_session_id"
	ArgRepeatTime     = "repeat_time"
)

// Args are the named arguments of a command or message. Values arrive as
// whatever the transport decoded: msgpack integers of any width, JSON
// float64 numbers, and bytes as []byte or base64 strings.
type Args map[string]interface{}

// Command is an action sent from a client to the host.
type Command struct {
	Action string `msgpack:"action" json:"action"`
	Args   Args   `msgpack:"args,omitempty" json:"args,omitempty"`
}

// Message is an event sent from the host to its clients.
type Message struct {
	Event string `msgpack:"event" json:"event"`
	Args  Args   `msgpack:"args,omitempty" json:"args,omitempty"`
}

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Int64 returns key as an integer.
func (a Args) Int64(key string) (int64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingArg, key)
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("argument %s: expected number, got %T", key, v)
	}
}

// Int returns key as an int.
func (a Args) Int(key string) (int, error) {
	n, err := a.Int64(key)
	return int(n), err
}

// Float returns key as a float.
func (a Args) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingArg, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		i, err := a.Int64(key)
		return float64(i), err
	}
}

// Bool returns key as a bool.
func (a Args) Bool(key string) (bool, error) {
	v, ok := a[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingArg, key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("argument %s: expected bool, got %T", key, v)
	}
	return b, nil
}

// String returns key as a string.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingArg, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s: expected string, got %T", key, v)
	}
	return s, nil
}

// Bytes returns key as raw bytes. Strings are decoded as base64.
func (a Args) Bytes(key string) ([]byte, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingArg, key)
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		data, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", key, err)
		}
		return data, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("argument %s: expected bytes, got %T", key, v)
	}
}

// NewCommand returns a command with the given args as key/value pairs.
func NewCommand(action string, kv ...interface{}) Command {
	return Command{Action: action, Args: pairs(kv)}
}

func pairs(kv []interface{}) Args {
	if len(kv) == 0 {
		return nil
	}
	args := make(Args, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		args[key] = kv[i+1]
	}
	return args
}
