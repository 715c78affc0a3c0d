package client

import (
	"errors"
	"time"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// ErrInvalidArgument is returned for arguments rejected before sending.
var ErrInvalidArgument = errors.New("invalid argument")

func (c *Client) Play() error           { return c.send(session.NewCommand(session.ActionPlay)) }
func (c *Client) Pause() error          { return c.send(session.NewCommand(session.ActionPause)) }
func (c *Client) Stop() error           { return c.send(session.NewCommand(session.ActionStop)) }
func (c *Client) PlayPause() error      { return c.send(session.NewCommand(session.ActionPlayPause)) }
func (c *Client) FastForward() error    { return c.send(session.NewCommand(session.ActionFastForward)) }
func (c *Client) Rewind() error         { return c.send(session.NewCommand(session.ActionRewind)) }
func (c *Client) SkipToNext() error     { return c.send(session.NewCommand(session.ActionSkipToNext)) }
func (c *Client) SkipToPrevious() error { return c.send(session.NewCommand(session.ActionSkipToPrevious)) }

// SeekTo seeks to progress milliseconds.
func (c *Client) SeekTo(progress int64) error {
	return c.send(session.NewCommand(session.ActionSeekTo, session.ArgProgress, progress))
}

// SkipToPosition plays the track at position.
func (c *Client) SkipToPosition(position int) error {
	if position < 0 {
		return ErrInvalidArgument
	}
	return c.send(session.NewCommand(session.ActionSkipToPosition, session.ArgPosition, position))
}

// PlayPauseAt toggles playback when position is current, otherwise plays it.
func (c *Client) PlayPauseAt(position int) error {
	if position < 0 {
		return ErrInvalidArgument
	}
	return c.send(session.NewCommand(session.ActionPlayPauseAt, session.ArgPosition, position))
}

func (c *Client) SetPlayMode(mode player.PlayMode) error {
	return c.send(session.NewCommand(session.ActionSetPlayMode, session.ArgMode, mode.ID()))
}

func (c *Client) SetSpeed(speed float64) error {
	return c.send(session.NewCommand(session.ActionSetSpeed, session.ArgSpeed, speed))
}

// SetPlaylist replaces the playlist and moves to position.
func (c *Client) SetPlaylist(p playlist.Playlist, position int, play bool) error {
	if position < 0 {
		return ErrInvalidArgument
	}
	data, err := player.EncodePlaylist(p)
	if err != nil {
		return err
	}
	return c.send(session.NewCommand(session.ActionSetPlaylist,
		session.ArgPlaylist, data, session.ArgPosition, position, session.ArgPlay, play))
}

func (c *Client) InsertMusicItem(position int, t track.Track) error {
	if position < 0 {
		return ErrInvalidArgument
	}
	data, err := player.EncodeTrack(t)
	if err != nil {
		return err
	}
	return c.send(session.NewCommand(session.ActionInsertMusicItem, session.ArgPosition, position, session.ArgTrack, data))
}

func (c *Client) AppendMusicItem(t track.Track) error {
	return c.sendTrack(session.ActionAppendMusicItem, t)
}

func (c *Client) MoveMusicItem(from, to int) error {
	if from < 0 || to < 0 {
		return ErrInvalidArgument
	}
	return c.send(session.NewCommand(session.ActionMoveMusicItem, session.ArgFrom, from, session.ArgTo, to))
}

func (c *Client) RemoveMusicItem(t track.Track) error {
	return c.sendTrack(session.ActionRemoveMusicItem, t)
}

func (c *Client) RemoveMusicItemAt(position int) error {
	if position < 0 {
		return ErrInvalidArgument
	}
	return c.send(session.NewCommand(session.ActionRemoveMusicItemAt, session.ArgPosition, position))
}

// SetNextPlay places t right after the current track.
func (c *Client) SetNextPlay(t track.Track) error {
	return c.sendTrack(session.ActionSetNextPlay, t)
}

func (c *Client) sendTrack(action string, t track.Track) error {
	data, err := player.EncodeTrack(t)
	if err != nil {
		return err
	}
	return c.send(session.NewCommand(action, session.ArgTrack, data))
}

// StartSleepTimer arms the host sleep timer.
func (c *Client) StartSleepTimer(d time.Duration, action player.SleepTimerAction) error {
	if d < 0 {
		return session.ErrInvalidTime
	}
	return c.send(session.NewCommand(session.ActionStartSleepTimer,
		session.ArgTime, d.Milliseconds(), session.ArgAction, action.String()))
}

func (c *Client) CancelSleepTimer() error {
	return c.send(session.NewCommand(session.ActionCancelSleepTimer))
}

// Shutdown asks the host to shut down. It is dropped when not connected.
func (c *Client) Shutdown() error {
	return c.sendIfConnected(session.NewCommand(session.ActionShutdown))
}

// Settings changes are dropped silently when not connected.

func (c *Client) SetSoundQuality(q player.SoundQuality) error {
	return c.sendIfConnected(session.NewCommand(session.ActionSetSoundQuality, session.ArgQuality, int(q)))
}

func (c *Client) SetAudioEffectConfig(config []byte) error {
	return c.sendIfConnected(session.NewCommand(session.ActionSetAudioEffectConfig, session.ArgConfig, config))
}

func (c *Client) SetAudioEffectEnabled(enabled bool) error {
	return c.sendIfConnected(session.NewCommand(session.ActionSetAudioEffectEnabled, session.ArgEnabled, enabled))
}

func (c *Client) SetOnlyWifiNetwork(only bool) error {
	return c.sendIfConnected(session.NewCommand(session.ActionSetOnlyWifiNetwork, session.ArgEnabled, only))
}

func (c *Client) SetIgnoreAudioFocus(ignore bool) error {
	return c.sendIfConnected(session.NewCommand(session.ActionSetIgnoreAudioFocus, session.ArgEnabled, ignore))
}
