package session

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
)

// StartSleepTimer arms a timer that runs action after d. A running timer
// is replaced. Nothing happens without a current track, and d == 0 pauses
// immediately.
func (h *Host) StartSleepTimer(d time.Duration, action player.SleepTimerAction) error {
	if d < 0 {
		return ErrInvalidTime
	}
	log.Debug().Str("player", h.id).Dur("time", d).Str("action", action.String()).Msg("startSleepTimer")

	h.disposeSleepTimer()

	if h.engine.State().Track == nil {
		return nil
	}
	if d == 0 {
		return h.engine.Pause()
	}

	if err := h.engine.NotifySleepTimerStart(d, h.now(), action); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sleepGen++
	gen := h.sleepGen
	h.sleepTimer = time.AfterFunc(d, func() { h.onSleepTimeout(gen, action) })
	return nil
}

// CancelSleepTimer stops a running sleep timer.
func (h *Host) CancelSleepTimer() {
	h.disposeSleepTimer()
	if err := h.engine.NotifySleepTimerEnd(false); err != nil {
		log.Debug().Err(err).Msg("Sleep timer end not published")
	}
}

func (h *Host) disposeSleepTimer() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sleepGen++
	if h.sleepTimer != nil {
		h.sleepTimer.Stop()
		h.sleepTimer = nil
	}
}

func (h *Host) onSleepTimeout(gen uint64, action player.SleepTimerAction) {
	h.mu.Lock()
	if gen != h.sleepGen {
		h.mu.Unlock()
		return
	}
	h.sleepTimer = nil
	h.mu.Unlock()

	log.Info().Str("player", h.id).Str("action", action.String()).Msg("Sleep timer expired")

	var err error
	switch action {
	case player.TimerStop:
		err = h.engine.Stop()
	case player.TimerShutdown:
		_ = h.engine.NotifySleepTimerEnd(true)
		go h.Shutdown()
		return
	default:
		err = h.engine.Pause()
	}
	if err != nil {
		log.Warn().Err(err).Msg("Sleep timer action failed")
	}
	if err := h.engine.NotifySleepTimerEnd(true); err != nil {
		log.Warn().Err(err).Msg("Failed to publish sleep timer end")
	}
}

// SetMaxIdleTime shuts the host down after it has been idle for minutes.
// Values <= 0 disable the idle timer.
func (h *Host) SetMaxIdleTime(minutes int) {
	h.mu.Lock()
	h.idleMinutes = minutes
	h.mu.Unlock()

	if minutes <= 0 {
		h.cancelIdleTimer()
		return
	}
	h.checkIdle(h.engine.State())
}

// checkIdle starts the idle timer when s is idle and cancels it otherwise.
func (h *Host) checkIdle(s player.State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.idleTimer != nil {
		h.idleTimer.Stop()
		h.idleTimer = nil
	}
	if h.idleMinutes <= 0 || h.closed || !s.IsIdle() {
		return
	}

	minutes := h.idleMinutes
	d := time.Duration(minutes) * h.idleUnit
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		current := h.idleTimer == timer
		h.mu.Unlock()
		if !current {
			return
		}
		log.Info().Str("player", h.id).Int("minutes", minutes).Msg("Idle timeout, shutting down")
		h.Shutdown()
	})
	h.idleTimer = timer
}

func (h *Host) cancelIdleTimer() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.idleTimer != nil {
		h.idleTimer.Stop()
		h.idleTimer = nil
	}
}
