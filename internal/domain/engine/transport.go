package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
)

// Play starts or resumes the current track.
func (e *Engine) Play() error {
	log.Debug().Str("player", e.id).Msg("play")
	return e.run(e.play)
}

// Pause pauses playback and drops any queued play intent.
func (e *Engine) Pause() error {
	log.Debug().Str("player", e.id).Msg("pause")
	return e.run(e.pause)
}

// Stop stops playback and releases the decoder.
func (e *Engine) Stop() error {
	log.Debug().Str("player", e.id).Msg("stop")
	return e.run(e.stop)
}

// PlayPause toggles between playing and paused.
func (e *Engine) PlayPause() error {
	log.Debug().Str("player", e.id).Msg("playPause")
	return e.run(e.playPause)
}

// SeekTo moves to ms. Ignored for tracks that forbid seeking.
func (e *Engine) SeekTo(ms int64) error {
	log.Debug().Str("player", e.id).Int64("progress", ms).Msg("seekTo")
	return e.run(func() { e.seekTo(ms, nil) })
}

// FastForward skips 15 seconds ahead.
func (e *Engine) FastForward() error {
	return e.run(e.fastForward)
}

// Rewind skips 15 seconds back.
func (e *Engine) Rewind() error {
	return e.run(e.rewind)
}

// SetPlayMode changes how next and previous tracks are chosen.
func (e *Engine) SetPlayMode(mode player.PlayMode) error {
	log.Debug().Str("player", e.id).Str("mode", mode.String()).Msg("setPlayMode")
	return e.run(func() { e.setPlayMode(mode) })
}

// SetSpeed changes the playback speed, clamped to [0.1, 10].
func (e *Engine) SetSpeed(speed float64) error {
	log.Debug().Str("player", e.id).Float64("speed", speed).Msg("setSpeed")
	return e.run(func() { e.setSpeed(speed) })
}

func (e *Engine) play() {
	if e.state.Track == nil || e.isPlaying() {
		return
	}
	if e.state.Preparing {
		e.playOnPrepared = true
		return
	}
	if e.requestFocusFailed() {
		return
	}
	if e.state.Prepared {
		if err := e.decoder.SetSpeed(e.state.Speed); err != nil {
			log.Warn().Err(err).Msg("Failed to apply speed")
		}
		if err := e.decoder.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start decoder")
			e.notifyError(player.ErrPlayer, "")
			return
		}
		e.notifyPlaying(e.decoder.IsStalled(), e.decoder.Progress(), e.nowMillis())
		return
	}
	e.prepare(true, nil)
}

func (e *Engine) pause() {
	e.resumePlay = false
	if e.state.Preparing {
		e.playOnPrepared = false
		e.playOnSeekComplete = false
		return
	}
	if !e.isPlaying() {
		return
	}
	if err := e.decoder.Pause(); err != nil {
		log.Error().Err(err).Msg("Failed to pause decoder")
		e.notifyError(player.ErrPlayer, "")
		return
	}
	e.notifyPaused()
}

func (e *Engine) stop() {
	if e.state.Playback == player.StateStopped {
		return
	}
	if e.state.Prepared && e.decoder != nil {
		if err := e.decoder.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop decoder")
		}
	}
	e.resolveOp.dispose()
	e.releaseDecoder()
	e.notifyStopped()
}

func (e *Engine) playPause() {
	if e.state.Preparing && e.playOnPrepared {
		e.pause()
		return
	}
	if e.isPlaying() {
		e.pause()
	} else {
		e.play()
	}
}

// seekTo seeks and runs action once the seek completes. While preparing, the
// seek is queued and inherits the pending play intent.
func (e *Engine) seekTo(ms int64, action func()) {
	if e.state.ForbidSeek() {
		return
	}
	if ms < 0 {
		ms = 0
	}
	if e.state.Preparing {
		e.playOnSeekComplete = e.playOnSeekComplete || e.playOnPrepared
		e.playOnPrepared = false
		e.preparedAction = func() { e.seekTo(ms, action) }
		return
	}
	if e.state.Prepared {
		e.seekCompleteAction = action
		if err := e.decoder.SeekTo(ms); err != nil {
			log.Error().Err(err).Int64("progress", ms).Msg("Failed to seek")
			e.notifyError(player.ErrDataLoadFailed, "")
		}
		return
	}
	if e.state.Track != nil {
		if d := e.state.Duration(); d > 0 && ms > d {
			ms = d
		}
		e.notifySeekComplete(ms, e.nowMillis(), false)
	}
}

func (e *Engine) fastForward() {
	if e.state.ForbidSeek() {
		return
	}
	if e.state.Preparing {
		e.preparedAction = e.fastForward
		return
	}
	if e.state.Prepared {
		e.seekTo(min(e.decoder.Duration(), e.decoder.Progress()+seekStep), nil)
	}
}

func (e *Engine) rewind() {
	if e.state.ForbidSeek() {
		return
	}
	if e.state.Preparing {
		e.preparedAction = e.rewind
		return
	}
	if e.state.Prepared {
		e.seekTo(max(0, e.decoder.Progress()-seekStep), nil)
	}
}

func (e *Engine) setPlayMode(mode player.PlayMode) {
	if mode == e.state.Mode {
		return
	}
	if e.state.Prepared && e.decoder != nil {
		e.decoder.SetLooping(mode == player.ModeLoop)
	}
	e.emit(player.PlayModeChanged{Mode: mode})
}

func (e *Engine) setSpeed(speed float64) {
	speed = player.ClampSpeed(speed)
	if speed == e.state.Speed {
		return
	}
	if e.state.Prepared && e.decoder != nil {
		if e.isPlaying() {
			// Elapsed extrapolation restarts from here at the new speed.
			e.emit(player.Progress{Progress: e.decoder.Progress(), UpdateTime: e.nowMillis()})
		}
		if err := e.decoder.SetSpeed(speed); err != nil {
			log.Warn().Err(err).Float64("speed", speed).Msg("Failed to apply speed")
		}
	}
	e.emit(player.SpeedChanged{Speed: speed})
}
