package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
)

// SetSoundQuality changes the stream quality. A prepared track is prepared
// again at the new quality, keeping its position and play state.
func (e *Engine) SetSoundQuality(q player.SoundQuality) error {
	log.Debug().Str("player", e.id).Str("quality", q.String()).Msg("setSoundQuality")
	return e.run(func() {
		if q == e.settings.SoundQuality {
			return
		}
		e.settings.SoundQuality = q
		if !e.state.Prepared {
			return
		}

		playing := e.isPlaying()
		position := e.decoder.Progress()
		e.releaseDecoder()
		e.prepare(playing, func() {
			if position > 0 {
				e.seekTo(position, nil)
			}
		})
	})
}

// SetAudioEffectConfig replaces the audio effect configuration.
func (e *Engine) SetAudioEffectConfig(config []byte) error {
	return e.run(func() {
		e.settings.AudioEffectConfig = append([]byte(nil), config...)
		e.effects.UpdateConfig(config)
	})
}

// SetAudioEffectEnabled attaches or detaches audio effects on the live
// audio session.
func (e *Engine) SetAudioEffectEnabled(enabled bool) error {
	log.Debug().Str("player", e.id).Bool("enabled", enabled).Msg("setAudioEffectEnabled")
	return e.run(func() {
		if enabled == e.settings.AudioEffectEnabled {
			return
		}
		e.settings.AudioEffectEnabled = enabled
		if !e.state.Prepared || e.decoder == nil {
			return
		}
		if enabled {
			e.effects.Attach(e.decoder.AudioSessionID())
			e.effectsAttached = true
		} else if e.effectsAttached {
			e.effects.Detach()
			e.effectsAttached = false
		}
	})
}

// SetOnlyWifiNetwork restricts streaming to Wi-Fi. Enabling it re-checks
// the current network for a prepared track.
func (e *Engine) SetOnlyWifiNetwork(only bool) error {
	log.Debug().Str("player", e.id).Bool("only", only).Msg("setOnlyWifiNetwork")
	return e.run(func() {
		if only == e.settings.OnlyWifiNetwork {
			return
		}
		e.settings.OnlyWifiNetwork = only
		if e.state.Prepared {
			e.checkNetworkType()
		}
	})
}

// SetIgnoreAudioFocus toggles whether audio focus is requested. Playback
// pauses when focus is now refused.
func (e *Engine) SetIgnoreAudioFocus(ignore bool) error {
	log.Debug().Str("player", e.id).Bool("ignore", ignore).Msg("setIgnoreAudioFocus")
	return e.run(func() {
		if ignore == e.settings.IgnoreAudioFocus {
			return
		}
		e.settings.IgnoreAudioFocus = ignore
		if !e.isPlaying() && !e.playOnPrepared {
			return
		}
		if e.requestFocusFailed() {
			e.pause()
		}
	})
}
