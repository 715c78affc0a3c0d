package player

import "fmt"

// PlaybackState is the coarse state of the playback engine.
type PlaybackState int

// Playback states
const (
	StateNone PlaybackState = iota
	StatePreparing
	StatePrepared
	StatePlaying
	StatePaused
	StateStopped
	StateError
)

var playbackStateNames = [...]string{"none", "preparing", "prepared", "playing", "paused", "stopped", "error"}

func (s PlaybackState) String() string {
	if s < 0 || int(s) >= len(playbackStateNames) {
		return fmt.Sprintf("PlaybackState(%d)", int(s))
	}
	return playbackStateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s PlaybackState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PlaybackState) UnmarshalText(text []byte) error {
	for i, name := range playbackStateNames {
		if name == string(text) {
			*s = PlaybackState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// PlayMode selects how the next and previous tracks are resolved.
// The numeric values are stable serial ids used for persistence.
type PlayMode int

// Play modes
const (
	ModePlaylistLoop PlayMode = 0
	ModeLoop         PlayMode = 1
	ModeShuffle      PlayMode = 2
	ModeSingleOnce   PlayMode = 3
)

// PlayModeFromID maps a serial id to a mode. Unknown ids map to ModePlaylistLoop.
func PlayModeFromID(id int) PlayMode {
	switch PlayMode(id) {
	case ModeLoop, ModeShuffle, ModeSingleOnce:
		return PlayMode(id)
	default:
		return ModePlaylistLoop
	}
}

// ID returns the serial id of the mode.
func (m PlayMode) ID() int { return int(m) }

func (m PlayMode) String() string {
	switch m {
	case ModeLoop:
		return "loop"
	case ModeShuffle:
		return "shuffle"
	case ModeSingleOnce:
		return "single_once"
	default:
		return "playlist_loop"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m PlayMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PlayMode) UnmarshalText(text []byte) error {
	mode, ok := ParsePlayMode(string(text))
	if !ok {
		return fmt.Errorf("unknown play mode %q", text)
	}
	*m = mode
	return nil
}

// ParsePlayMode parses the String form of a mode.
func ParsePlayMode(s string) (PlayMode, bool) {
	switch s {
	case "playlist_loop":
		return ModePlaylistLoop, true
	case "loop":
		return ModeLoop, true
	case "shuffle":
		return ModeShuffle, true
	case "single_once":
		return ModeSingleOnce, true
	}
	return ModePlaylistLoop, false
}

// SleepTimerAction is what the sleep timer does when it expires.
type SleepTimerAction int

// Sleep timer actions
const (
	TimerPause SleepTimerAction = iota
	TimerStop
	TimerShutdown
)

func (a SleepTimerAction) String() string {
	switch a {
	case TimerStop:
		return "stop"
	case TimerShutdown:
		return "shutdown"
	default:
		return "pause"
	}
}

// ParseSleepTimerAction parses the String form of an action.
func ParseSleepTimerAction(s string) (SleepTimerAction, bool) {
	switch s {
	case "pause":
		return TimerPause, true
	case "stop":
		return TimerStop, true
	case "shutdown":
		return TimerShutdown, true
	}
	return TimerPause, false
}

// SoundQuality is the requested stream quality. Stored by ordinal.
type SoundQuality int

// Sound qualities
const (
	QualityStandard SoundQuality = iota
	QualityLow
	QualityHigh
	QualitySuper
)

func (q SoundQuality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityHigh:
		return "high"
	case QualitySuper:
		return "super"
	default:
		return "standard"
	}
}

// SoundQualityFromOrdinal maps a stored ordinal back to a quality.
func SoundQualityFromOrdinal(n int) SoundQuality {
	if n < int(QualityStandard) || n > int(QualitySuper) {
		return QualityStandard
	}
	return SoundQuality(n)
}
