package client

import (
	"github.com/samber/lo"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// State returns a copy of the mirrored state.
func (c *Client) State() player.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mirror.Clone()
}

// Playlist returns the mirrored playlist.
func (c *Client) Playlist() playlist.Playlist {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist
}

// PlayProgress extrapolates the playback position in milliseconds.
func (c *Client) PlayProgress() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mirror.Elapsed(c.now())
}

// PlayingTrack returns the current track, or nil.
func (c *Client) PlayingTrack() *track.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mirror.Track == nil {
		return nil
	}
	return c.mirror.Track.Ptr()
}

// PlaybackState returns the mirrored playback state.
func (c *Client) PlaybackState() player.PlaybackState { return c.State().Playback }

// PlayMode returns the mirrored play mode.
func (c *Client) PlayMode() player.PlayMode { return c.State().Mode }

// Speed returns the mirrored playback speed.
func (c *Client) Speed() float64 { return c.State().Speed }

// PlayPosition returns the playlist index of the current track.
func (c *Client) PlayPosition() int { return c.State().Position }

// IsPlaying reports whether the host is playing.
func (c *Client) IsPlaying() bool { return c.State().IsPlaying() }

// IsStalled reports whether playback is buffering mid-track.
func (c *Client) IsStalled() bool { return c.State().Stalled }

// IsPreparing reports whether the current track is being prepared.
func (c *Client) IsPreparing() bool { return c.State().Preparing }

// IsPrepared reports whether the current track is ready to play.
func (c *Client) IsPrepared() bool { return c.State().Prepared }

// IsError reports whether the host is in the error state.
func (c *Client) IsError() bool { return c.State().Playback == player.StateError }

// ErrorCode returns the last error code.
func (c *Client) ErrorCode() player.ErrorCode { return c.State().ErrorCode }

// ErrorMessage returns the last error message.
func (c *Client) ErrorMessage() string { return c.State().ErrorMessage }

// BufferedProgress returns the buffered position in milliseconds.
func (c *Client) BufferedProgress() int64 { return c.State().BufferedProgress }

// AudioSessionID returns the decoder's audio session.
func (c *Client) AudioSessionID() int { return c.State().AudioSessionID }

// IsForbidSeek reports whether the current track disables seeking.
func (c *Client) IsForbidSeek() bool { return c.State().ForbidSeek() }

// SleepTimer returns the mirrored sleep timer.
func (c *Client) SleepTimer() player.SleepTimer { return c.State().SleepTimer }

// SleepTimerElapsed returns how long the running sleep timer has been
// counting, in milliseconds. It is 0 when no timer runs.
func (c *Client) SleepTimerElapsed() int64 {
	st := c.SleepTimer()
	if !st.Started {
		return 0
	}
	return lo.Clamp(c.now().UnixMilli()-st.StartTime, 0, st.Time)
}

// sticky builds the events that describe the current state, one per
// category. Stalled and the sleep timer are only included while active.
func sticky(s player.State, p playlist.Playlist) []player.Event {
	evs := []player.Event{
		player.PlaylistChanged{Position: s.Position, Playlist: p},
		player.TrackChanged{Track: s.Track, Position: s.Position, Progress: s.Progress, UpdateTime: s.ProgressUpdateTime},
		player.PlayModeChanged{Mode: s.Mode},
		player.SpeedChanged{Speed: s.Speed},
	}
	if s.Preparing {
		evs = append(evs, player.Preparing{})
	}
	if s.Prepared {
		evs = append(evs, player.Prepared{AudioSessionID: s.AudioSessionID})
	}

	switch s.Playback {
	case player.StatePlaying:
		evs = append(evs, player.Playing{Stalled: s.Stalled, Progress: s.Progress, UpdateTime: s.ProgressUpdateTime})
	case player.StatePaused:
		evs = append(evs, player.Paused{Progress: s.Progress, UpdateTime: s.ProgressUpdateTime})
	case player.StateStopped:
		evs = append(evs, player.Stopped{UpdateTime: s.ProgressUpdateTime})
	case player.StateError:
		evs = append(evs, player.Failed{Code: s.ErrorCode, Message: s.ErrorMessage})
	}

	if s.Stalled {
		evs = append(evs, player.Stalled{Stalled: true, Progress: s.Progress, UpdateTime: s.ProgressUpdateTime})
	}
	evs = append(evs, player.Buffered{Progress: s.BufferedProgress})
	if s.SleepTimer.Started {
		evs = append(evs, player.SleepTimerStart{
			Time:      s.SleepTimer.Time,
			StartTime: s.SleepTimer.StartTime,
			Action:    s.SleepTimer.Action,
		})
	}
	return evs
}

// replay delivers the sticky events to fn, limited to kinds when given.
func (c *Client) replay(fn player.Listener, kinds []player.Kind) {
	c.mu.Lock()
	evs := sticky(c.mirror.Clone(), c.playlist)
	c.mu.Unlock()

	if len(kinds) > 0 {
		evs = lo.Filter(evs, func(ev player.Event, _ int) bool {
			return lo.Contains(kinds, ev.Kind())
		})
	}
	for _, ev := range evs {
		fn(ev)
	}
}
