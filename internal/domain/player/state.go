// Package player provides the player state model: playback enums, the
// authoritative State aggregate, the lifecycle events that mutate it, and
// its persistence and wire encodings.
package player

import (
	"time"

	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// Speed bounds
const (
	MinSpeed     = 0.1
	MaxSpeed     = 10.0
	DefaultSpeed = 1.0
)

// SleepTimer is the sleep timer sub-state.
type SleepTimer struct {
	Started   bool             `msgpack:"started" json:"started"`
	Time      int64            `msgpack:"time" json:"time"`            // duration in milliseconds
	StartTime int64            `msgpack:"start_time" json:"startTime"` // unix milliseconds
	Action    SleepTimerAction `msgpack:"action" json:"action"`
}

// State is the full session state of one player.
// Only the engine mutates it, by applying events; everyone else works on clones.
type State struct {
	// Persistent fields
	Track              *track.Track `msgpack:"track"`
	Progress           int64        `msgpack:"progress"`             // milliseconds
	ProgressUpdateTime int64        `msgpack:"progress_update_time"` // unix milliseconds
	Position           int          `msgpack:"position"`
	Mode               PlayMode     `msgpack:"mode"`
	Speed              float64      `msgpack:"speed"`

	// Transient fields
	Playback         PlaybackState `msgpack:"playback"`
	Preparing        bool          `msgpack:"preparing"`
	Prepared         bool          `msgpack:"prepared"`
	AudioSessionID   int           `msgpack:"audio_session_id"`
	BufferedProgress int64         `msgpack:"buffered_progress"`
	Stalled          bool          `msgpack:"stalled"`
	ErrorCode        ErrorCode     `msgpack:"error_code"`
	ErrorMessage     string        `msgpack:"error_message"`
	SleepTimer       SleepTimer    `msgpack:"sleep_timer"`
}

// NewState creates a player state with default values.
func NewState() State {
	return State{
		Mode:     ModePlaylistLoop,
		Speed:    DefaultSpeed,
		Playback: StateNone,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	if s.Track != nil {
		c.Track = s.Track.Ptr()
	}
	return c
}

// ForbidSeek reports whether the current track disallows seeking.
func (s State) ForbidSeek() bool {
	return s.Track != nil && s.Track.ForbidSeek
}

// Duration returns the current track duration in milliseconds.
func (s State) Duration() int64 {
	if s.Track == nil {
		return 0
	}
	return s.Track.Duration
}

// IsPlaying reports whether the state is PLAYING.
func (s State) IsPlaying() bool {
	return s.Playback == StatePlaying
}

// IsIdle reports whether nothing is preparing, stalled or playing.
func (s State) IsIdle() bool {
	return !s.Preparing && !s.Stalled && s.Playback != StatePlaying
}

// Elapsed extrapolates the playback position at now:
// progress + (now - updateTime) * speed while playing and not stalled.
// The result is clamped to the track duration when it is known.
func (s State) Elapsed(now time.Time) int64 {
	elapsed := s.Progress
	if s.Playback == StatePlaying && !s.Stalled && s.ProgressUpdateTime > 0 {
		delta := now.UnixMilli() - s.ProgressUpdateTime
		if delta > 0 {
			elapsed += int64(float64(delta) * s.Speed)
		}
	}
	if d := s.Duration(); d > 0 && elapsed > d {
		elapsed = d
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// ToJSON returns the state as a map suitable for JSON serialization.
func (s State) ToJSON(now time.Time) map[string]interface{} {
	out := map[string]interface{}{
		"status":           s.Playback.String(),
		"position":         s.Position,
		"seek":             s.Elapsed(now),
		"progress":         s.Progress,
		"progressUpdated":  s.ProgressUpdateTime,
		"playMode":         s.Mode.String(),
		"speed":            s.Speed,
		"preparing":        s.Preparing,
		"prepared":         s.Prepared,
		"audioSessionId":   s.AudioSessionID,
		"bufferedProgress": s.BufferedProgress,
		"stalled":          s.Stalled,
		"errorCode":        int(s.ErrorCode),
		"errorMessage":     s.ErrorMessage,
		"sleepTimer":       s.SleepTimer,
		"forbidSeek":       s.ForbidSeek(),
	}
	if s.Track != nil {
		out["track"] = s.Track.Clone()
		out["title"] = s.Track.Title
		out["artist"] = s.Track.Artist
		out["album"] = s.Track.Album
		out["albumart"] = s.Track.IconURI
		out["uri"] = s.Track.URI
		out["duration"] = s.Track.Duration
	}
	return out
}

// ClampSpeed limits speed to [MinSpeed, MaxSpeed].
func ClampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}
