package engine

import (
	"time"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/playlist"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// currentProgress is the decoder position when prepared, else the state's.
func (e *Engine) currentProgress() int64 {
	if e.state.Prepared && e.decoder != nil {
		return e.decoder.Progress()
	}
	return e.state.Progress
}

func (e *Engine) notifyPlaying(stalled bool, progress, updateTime int64) {
	e.emit(player.Playing{Stalled: stalled, Progress: progress, UpdateTime: updateTime})
	e.startSampler()
	e.registerNoisy()
}

func (e *Engine) notifyPaused() {
	e.cancelSampler()
	e.emit(player.Paused{Progress: e.currentProgress(), UpdateTime: e.nowMillis()})
}

func (e *Engine) notifyStopped() {
	e.cancelSampler()
	e.emit(player.Stopped{UpdateTime: e.nowMillis()})
	e.abandonFocus()
	e.unregisterHelpers()
}

func (e *Engine) notifyStalled(stalled bool) {
	e.emit(player.Stalled{Stalled: stalled, Progress: e.currentProgress(), UpdateTime: e.nowMillis()})
}

// notifyError tears everything down before publishing the failure.
func (e *Engine) notifyError(code player.ErrorCode, message string) {
	e.resolveOp.dispose()
	e.releaseDecoder()
	if message == "" {
		message = code.Message()
	}
	e.emit(player.Failed{Code: code, Message: message})
	e.abandonFocus()
	e.unregisterHelpers()
}

func (e *Engine) notifySeekComplete(progress, updateTime int64, stalled bool) {
	e.emit(player.SeekComplete{Progress: progress, UpdateTime: updateTime, Stalled: stalled})
	if stalled || e.playOnSeekComplete || e.isPlaying() {
		return
	}
	switch e.state.Playback {
	case player.StatePaused, player.StateError:
	default:
		e.notifyPaused()
	}
}

// notifyPlayOnceComplete ends a SINGLE_ONCE track: paused at the start with
// the decoder released.
func (e *Engine) notifyPlayOnceComplete() {
	e.releaseDecoder()
	e.emit(player.Paused{Progress: 0, UpdateTime: e.nowMillis()})
	e.abandonFocus()
	e.unregisterHelpers()
}

// changeTrack makes t current at position and optionally starts it.
func (e *Engine) changeTrack(t *track.Track, position int, play bool) {
	e.resolveOp.dispose()
	e.releaseDecoder()

	var cur *track.Track
	if t != nil {
		cur = t.Ptr()
	}
	e.emit(player.TrackChanged{Track: cur, Position: position, Progress: 0, UpdateTime: e.nowMillis()})
	e.emit(player.Buffered{Progress: 0})

	if play && cur != nil {
		e.play()
	}
}

// changeTrackAt makes the playlist entry at position current.
func (e *Engine) changeTrackAt(position int, play bool) {
	t, ok := e.playlist.Get(position)
	if !ok {
		e.changeTrack(nil, 0, false)
		return
	}
	e.changeTrack(&t, position, play)
}

func (e *Engine) notifyPlaylistChanged(position int, p playlist.Playlist) {
	e.emit(player.PlaylistChanged{Position: position, Playlist: p})
}

// Sleep timer transitions are owned by the session host but flow through
// the engine so that every state change has a single writer.

// NotifySleepTimerStart records a started sleep timer.
func (e *Engine) NotifySleepTimerStart(d time.Duration, startTime time.Time, action player.SleepTimerAction) error {
	return e.run(func() {
		e.emit(player.SleepTimerStart{
			Time:      d.Milliseconds(),
			StartTime: startTime.UnixMilli(),
			Action:    action,
		})
	})
}

// NotifySleepTimerEnd records a finished or cancelled sleep timer.
func (e *Engine) NotifySleepTimerEnd(timeUp bool) error {
	return e.run(func() {
		if !e.state.SleepTimer.Started {
			return
		}
		e.emit(player.SleepTimerEnd{TimeUp: timeUp})
	})
}

// NotifyShutdown publishes the shutdown event.
func (e *Engine) NotifyShutdown() error {
	return e.run(func() {
		e.emit(player.Shutdown{})
	})
}
