package engine

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

var errOnlyWifi = errors.New("only wifi network allowed")

// isPlaying reports whether the decoder is actually producing audio.
func (e *Engine) isPlaying() bool {
	return e.state.Prepared && e.decoder != nil && e.decoder.IsPlaying()
}

// releaseDecoder tears down the decoder and every pending continuation that
// depends on it.
func (e *Engine) releaseDecoder() {
	e.cancelSampler()
	e.fader.Stop()
	if e.decoder != nil {
		e.decoder.Release()
		e.decoder = nil
	}
	e.decoderGen++
	if e.effectsAttached {
		e.effects.Detach()
		e.effectsAttached = false
	}

	e.state.Preparing = false
	e.state.Prepared = false
	e.playOnPrepared = false
	e.playOnSeekComplete = false
	e.preparedAction = nil
	e.seekCompleteAction = nil

	if e.state.Stalled {
		e.notifyStalled(false)
	}
}

// prepare resolves the current track and builds a decoder for it. play is
// the play-on-prepared intent, action runs once the decoder is ready.
func (e *Engine) prepare(play bool, action func()) {
	e.releaseDecoder()
	e.resolveOp.dispose()
	if e.state.Track == nil {
		return
	}

	t := e.state.Track.Clone()
	quality := e.settings.SoundQuality
	checkCache := e.settings.OnlyWifiNetwork && !e.network.Current().Wifi

	e.playOnPrepared = play
	e.preparedAction = action
	e.emit(player.Preparing{})

	log.Debug().
		Str("player", e.id).
		Str("track", t.ID).
		Str("quality", quality.String()).
		Bool("play", play).
		Msg("Preparing track")

	e.resolveOp = async(e, func(ctx context.Context) (string, error) {
		if checkCache {
			cached, err := e.cache.IsCached(ctx, t, quality)
			if err != nil || !cached {
				return "", errOnlyWifi
			}
		}
		return e.resolver.Resolve(ctx, t, quality)
	}, func(uri string, err error) {
		switch {
		case errors.Is(err, errOnlyWifi):
			e.notifyError(player.ErrOnlyWifiNetwork, "")
		case err != nil:
			log.Warn().Err(err).Str("track", t.ID).Msg("Failed to resolve track uri")
			e.notifyError(player.ErrGetURLFailed, "")
		default:
			e.createDecoder(t, uri)
		}
	})
}

func (e *Engine) createDecoder(t track.Track, uri string) {
	e.decoderGen++
	l := &decoderEvents{e: e, gen: e.decoderGen}

	d, err := e.decoders.NewDecoder(uri, t, l)
	if err != nil {
		log.Error().Err(err).Str("uri", uri).Msg("Failed to create decoder")
		e.notifyError(player.ErrDataLoadFailed, "")
		return
	}
	e.decoder = d

	if err := d.Prepare(); err != nil {
		log.Error().Err(err).Str("uri", uri).Msg("Failed to prepare decoder")
		e.notifyError(player.ErrDataLoadFailed, "")
	}
}

func (e *Engine) onPrepared() {
	d := e.decoder
	d.SetLooping(e.state.Mode == player.ModeLoop)
	if e.settings.AudioEffectEnabled {
		e.effects.Attach(d.AudioSessionID())
		e.effectsAttached = true
	}
	e.emit(player.Prepared{AudioSessionID: d.AudioSessionID()})

	action := e.preparedAction
	e.preparedAction = nil

	// Resume the saved position first; a pending play waits for the seek.
	if !e.state.ForbidSeek() && e.state.Progress > 0 {
		e.playOnSeekComplete = e.playOnSeekComplete || e.playOnPrepared
		e.playOnPrepared = false
		e.seekTo(e.state.Progress, action)
		return
	}

	if e.playOnPrepared {
		e.playOnPrepared = false
		e.play()
	} else if action == nil && !e.playOnSeekComplete {
		e.notifyPaused()
	}
	if action != nil {
		action()
	}
}

func (e *Engine) onSeekComplete() {
	e.notifySeekComplete(e.decoder.Progress(), e.nowMillis(), e.decoder.IsStalled())

	if e.playOnSeekComplete {
		e.playOnSeekComplete = false
		e.play()
	}
	if action := e.seekCompleteAction; action != nil {
		e.seekCompleteAction = nil
		action()
	}
}

func (e *Engine) onCompletion() {
	switch e.state.Mode {
	case player.ModeLoop:
		return
	case player.ModeSingleOnce:
		e.notifyPlayOnceComplete()
	default:
		e.skipToNext()
	}
}

func (e *Engine) onBuffering(buffered int64, isPercent bool) {
	if isPercent {
		buffered = buffered * e.state.Duration() / 100
	}
	e.emit(player.Buffered{Progress: buffered})
}

func (e *Engine) onDecoderError(code player.ErrorCode, message string) {
	log.Error().
		Str("player", e.id).
		Int("code", int(code)).
		Str("message", message).
		Msg("Decoder error")
	e.notifyError(player.ErrorCodeFromInt(int(code)), message)
}

// decoderEvents forwards callbacks of one decoder generation to the loop.
// Callbacks of a released decoder are dropped.
type decoderEvents struct {
	e   *Engine
	gen uint64
}

func (l *decoderEvents) dispatch(fn func()) {
	e := l.e
	e.mbox.post(func() {
		if l.gen != e.decoderGen || e.decoder == nil {
			return
		}
		fn()
	})
}

func (l *decoderEvents) OnPrepared()     { l.dispatch(l.e.onPrepared) }
func (l *decoderEvents) OnCompletion()   { l.dispatch(l.e.onCompletion) }
func (l *decoderEvents) OnSeekComplete() { l.dispatch(l.e.onSeekComplete) }

func (l *decoderEvents) OnRepeat() {
	l.dispatch(func() { l.e.emit(player.Repeat{RepeatTime: l.e.nowMillis()}) })
}

func (l *decoderEvents) OnStalled(stalled bool) {
	l.dispatch(func() { l.e.notifyStalled(stalled) })
}

func (l *decoderEvents) OnBuffering(buffered int64, isPercent bool) {
	l.dispatch(func() { l.e.onBuffering(buffered, isPercent) })
}

func (l *decoderEvents) OnError(code player.ErrorCode, message string) {
	l.dispatch(func() { l.e.onDecoderError(code, message) })
}
