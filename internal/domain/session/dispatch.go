package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/engine"
	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// SetSoundQuality changes and stores the sound quality.
func (h *Host) SetSoundQuality(ctx context.Context, q player.SoundQuality) error {
	if err := h.engine.SetSoundQuality(q); err != nil {
		return err
	}
	return h.config.SetSoundQuality(ctx, q)
}

// SetAudioEffectConfig changes and stores the audio effect configuration.
func (h *Host) SetAudioEffectConfig(ctx context.Context, config []byte) error {
	if err := h.engine.SetAudioEffectConfig(config); err != nil {
		return err
	}
	return h.config.SetAudioEffectConfig(ctx, config)
}

// SetAudioEffectEnabled changes and stores whether effects are enabled.
func (h *Host) SetAudioEffectEnabled(ctx context.Context, enabled bool) error {
	if err := h.engine.SetAudioEffectEnabled(enabled); err != nil {
		return err
	}
	return h.config.SetAudioEffectEnabled(ctx, enabled)
}

// SetOnlyWifiNetwork changes and stores the Wi-Fi only restriction.
func (h *Host) SetOnlyWifiNetwork(ctx context.Context, only bool) error {
	if err := h.engine.SetOnlyWifiNetwork(only); err != nil {
		return err
	}
	return h.config.SetOnlyWifiNetwork(ctx, only)
}

// SetIgnoreAudioFocus changes and stores whether audio focus is ignored.
func (h *Host) SetIgnoreAudioFocus(ctx context.Context, ignore bool) error {
	if err := h.engine.SetIgnoreAudioFocus(ignore); err != nil {
		return err
	}
	return h.config.SetIgnoreAudioFocus(ctx, ignore)
}

type handler func(ctx context.Context, h *Host, a Args) error

func noArgs(fn func(e *engine.Engine) error) handler {
	return func(_ context.Context, h *Host, _ Args) error { return fn(h.engine) }
}

var handlers = map[string]handler{
	ActionPlay:           noArgs((*engine.Engine).Play),
	ActionPause:          noArgs((*engine.Engine).Pause),
	ActionStop:           noArgs((*engine.Engine).Stop),
	ActionPlayPause:      noArgs((*engine.Engine).PlayPause),
	ActionFastForward:    noArgs((*engine.Engine).FastForward),
	ActionRewind:         noArgs((*engine.Engine).Rewind),
	ActionSkipToNext:     noArgs((*engine.Engine).SkipToNext),
	ActionSkipToPrevious: noArgs((*engine.Engine).SkipToPrevious),

	ActionSeekTo: func(_ context.Context, h *Host, a Args) error {
		ms, err := a.Int64(ArgProgress)
		if err != nil {
			return err
		}
		return h.engine.SeekTo(ms)
	},
	ActionSkipToPosition: func(_ context.Context, h *Host, a Args) error {
		pos, err := a.Int(ArgPosition)
		if err != nil {
			return err
		}
		return h.engine.SkipToPosition(pos)
	},
	ActionPlayPauseAt: func(_ context.Context, h *Host, a Args) error {
		pos, err := a.Int(ArgPosition)
		if err != nil {
			return err
		}
		return h.engine.PlayPauseAt(pos)
	},
	ActionSetPlayMode: func(_ context.Context, h *Host, a Args) error {
		mode, err := a.Int(ArgMode)
		if err != nil {
			return err
		}
		return h.engine.SetPlayMode(player.PlayModeFromID(mode))
	},
	ActionSetSpeed: func(_ context.Context, h *Host, a Args) error {
		speed, err := a.Float(ArgSpeed)
		if err != nil {
			return err
		}
		return h.engine.SetSpeed(speed)
	},
	ActionSetPlaylist: func(_ context.Context, h *Host, a Args) error {
		data, err := a.Bytes(ArgPlaylist)
		if err != nil {
			return err
		}
		p, err := player.DecodePlaylist(data)
		if err != nil {
			return err
		}
		pos, err := a.Int(ArgPosition)
		if err != nil {
			return err
		}
		play, err := a.Bool(ArgPlay)
		if err != nil {
			return err
		}
		return h.engine.SetPlaylist(p, pos, play)
	},
	ActionInsertMusicItem: func(_ context.Context, h *Host, a Args) error {
		pos, err := a.Int(ArgPosition)
		if err != nil {
			return err
		}
		t, err := trackArg(a)
		if err != nil {
			return err
		}
		return h.engine.InsertMusicItem(pos, t)
	},
	ActionAppendMusicItem: func(_ context.Context, h *Host, a Args) error {
		t, err := trackArg(a)
		if err != nil {
			return err
		}
		return h.engine.AppendMusicItem(t)
	},
	ActionMoveMusicItem: func(_ context.Context, h *Host, a Args) error {
		from, err := a.Int(ArgFrom)
		if err != nil {
			return err
		}
		to, err := a.Int(ArgTo)
		if err != nil {
			return err
		}
		return h.engine.MoveMusicItem(from, to)
	},
	ActionRemoveMusicItem: func(_ context.Context, h *Host, a Args) error {
		t, err := trackArg(a)
		if err != nil {
			return err
		}
		return h.engine.RemoveMusicItem(t)
	},
	ActionRemoveMusicItemAt: func(_ context.Context, h *Host, a Args) error {
		pos, err := a.Int(ArgPosition)
		if err != nil {
			return err
		}
		return h.engine.RemoveMusicItemAt(pos)
	},
	ActionSetNextPlay: func(_ context.Context, h *Host, a Args) error {
		t, err := trackArg(a)
		if err != nil {
			return err
		}
		return h.engine.SetNextPlay(t)
	},

	ActionSetSoundQuality: func(ctx context.Context, h *Host, a Args) error {
		q, err := a.Int(ArgQuality)
		if err != nil {
			return err
		}
		return h.SetSoundQuality(ctx, player.SoundQualityFromOrdinal(q))
	},
	ActionSetAudioEffectConfig: func(ctx context.Context, h *Host, a Args) error {
		config, err := a.Bytes(ArgConfig)
		if err != nil {
			return err
		}
		return h.SetAudioEffectConfig(ctx, config)
	},
	ActionSetAudioEffectEnabled: func(ctx context.Context, h *Host, a Args) error {
		enabled, err := a.Bool(ArgEnabled)
		if err != nil {
			return err
		}
		return h.SetAudioEffectEnabled(ctx, enabled)
	},
	ActionSetOnlyWifiNetwork: func(ctx context.Context, h *Host, a Args) error {
		only, err := a.Bool(ArgEnabled)
		if err != nil {
			return err
		}
		return h.SetOnlyWifiNetwork(ctx, only)
	},
	ActionSetIgnoreAudioFocus: func(ctx context.Context, h *Host, a Args) error {
		ignore, err := a.Bool(ArgEnabled)
		if err != nil {
			return err
		}
		return h.SetIgnoreAudioFocus(ctx, ignore)
	},

	ActionStartSleepTimer: func(_ context.Context, h *Host, a Args) error {
		ms, err := a.Int64(ArgTime)
		if err != nil {
			return err
		}
		action := player.TimerPause
		if a.Has(ArgAction) {
			name, err := a.String(ArgAction)
			if err != nil {
				return err
			}
			var ok bool
			if action, ok = player.ParseSleepTimerAction(name); !ok {
				return fmt.Errorf("unknown sleep timer action %q", name)
			}
		}
		return h.StartSleepTimer(time.Duration(ms)*time.Millisecond, action)
	},
	ActionCancelSleepTimer: func(_ context.Context, h *Host, _ Args) error {
		h.CancelSleepTimer()
		return nil
	},
	ActionSync: func(_ context.Context, h *Host, a Args) error {
		token, err := a.String(ArgToken)
		if err != nil {
			return err
		}
		return h.Sync(token)
	},
	ActionShutdown: func(_ context.Context, h *Host, _ Args) error {
		go h.Shutdown()
		return nil
	},
}

func trackArg(a Args) (track.Track, error) {
	data, err := a.Bytes(ArgTrack)
	if err != nil {
		return track.Track{}, err
	}
	return player.DecodeTrack(data)
}

// Dispatch runs a client command.
func (h *Host) Dispatch(ctx context.Context, cmd Command) error {
	fn, ok := handlers[cmd.Action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, cmd.Action)
	}
	select {
	case <-h.done:
		return ErrShutdown
	default:
	}

	if err := fn(ctx, h, cmd.Args); err != nil {
		log.Debug().Err(err).Str("player", h.id).Str("action", cmd.Action).Msg("Command failed")
		return err
	}
	return nil
}
