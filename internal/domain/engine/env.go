package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
)

// requestFocusFailed asks for audio focus and reports whether playback must
// not start. With focus ignored, playback only waits for a phone call to end.
func (e *Engine) requestFocusFailed() bool {
	if e.settings.IgnoreAudioFocus {
		e.abandonFocus()
		e.registerPhone()
		return !e.phone.IsIdle()
	}

	granted := e.focus.Request(focusEvents{e})
	e.focusHeld = granted
	return !granted
}

func (e *Engine) abandonFocus() {
	if e.focusHeld {
		e.focus.Abandon()
		e.focusHeld = false
	}
}

func (e *Engine) registerPhone() {
	if e.phoneListening {
		return
	}
	e.phone.Register(phoneEvents{e})
	e.phoneListening = true
}

func (e *Engine) registerNoisy() {
	if e.noisyListening {
		return
	}
	e.noisy.Register(func() {
		e.mbox.post(func() {
			log.Debug().Str("player", e.id).Msg("Audio becoming noisy")
			e.pause()
		})
	})
	e.noisyListening = true
}

func (e *Engine) unregisterHelpers() {
	if e.phoneListening {
		e.phone.Unregister()
		e.phoneListening = false
	}
	if e.noisyListening {
		e.noisy.Unregister()
		e.noisyListening = false
	}
}

// focusEvents forwards focus callbacks to the loop.
type focusEvents struct{ e *Engine }

func (f focusEvents) OnLoss() {
	f.e.mbox.post(func() {
		f.e.resumePlay = false
		f.e.pause()
	})
}

func (f focusEvents) OnLossTransient() {
	f.e.mbox.post(func() {
		playing := f.e.isPlaying() || f.e.playOnPrepared
		f.e.pause()
		f.e.resumePlay = playing
	})
}

func (f focusEvents) OnLossTransientCanDuck() {
	f.e.mbox.post(func() {
		f.e.resumePlay = f.e.isPlaying()
		if f.e.resumePlay {
			f.e.fader.Quiet()
		}
	})
}

func (f focusEvents) OnGain(lossTransient, lossTransientCanDuck bool) {
	f.e.mbox.post(func() {
		e := f.e
		if !e.resumePlay {
			return
		}
		if lossTransient {
			e.resumePlay = false
			e.play()
			return
		}
		if lossTransientCanDuck && e.isPlaying() {
			e.fader.DismissQuiet()
		}
		e.resumePlay = false
	})
}

// phoneEvents pauses for calls and resumes afterwards.
type phoneEvents struct{ e *Engine }

func (p phoneEvents) OnIdle() {
	p.e.mbox.post(func() {
		if p.e.resumePlay {
			p.e.resumePlay = false
			p.e.play()
		}
	})
}

func (p phoneEvents) OnRinging() { p.e.mbox.post(p.e.onCall) }
func (p phoneEvents) OnOffHook() { p.e.mbox.post(p.e.onCall) }

func (e *Engine) onCall() {
	if !e.resumePlay {
		e.resumePlay = e.state.Playback == player.StatePlaying || e.playOnPrepared
	}
	resume := e.resumePlay
	e.pause()
	e.resumePlay = resume
}

// onNetworkChanged re-validates the Wi-Fi only policy for a prepared track.
func (e *Engine) onNetworkChanged(n Network) {
	log.Debug().
		Str("player", e.id).
		Bool("connected", n.Connected).
		Bool("wifi", n.Wifi).
		Msg("Network changed")
	if e.state.Prepared && n.Connected {
		e.checkNetworkType()
	}
}

// checkNetworkType pauses and raises ONLY_WIFI_NETWORK when the policy is
// violated by an uncached track.
func (e *Engine) checkNetworkType() {
	e.networkOp.dispose()
	if e.state.Track == nil || !e.settings.OnlyWifiNetwork {
		return
	}
	n := e.network.Current()
	if !n.Connected || n.Wifi {
		return
	}

	t := e.state.Track.Clone()
	quality := e.settings.SoundQuality
	e.networkOp = async(e, func(ctx context.Context) (bool, error) {
		return e.cache.IsCached(ctx, t, quality)
	}, func(cached bool, err error) {
		if err != nil {
			log.Warn().Err(err).Str("track", t.ID).Msg("Cache check failed")
			cached = false
		}
		if cached || !e.settings.OnlyWifiNetwork || e.network.Current().Wifi {
			return
		}
		e.pause()
		e.notifyError(player.ErrOnlyWifiNetwork, "")
	})
}

// startSampler periodically records the decoder position while playing.
func (e *Engine) startSampler() {
	e.cancelSampler()
	if e.state.ForbidSeek() {
		return
	}

	ticker := time.NewTicker(e.interval)
	done := make(chan struct{})
	e.stopSampler = func() {
		ticker.Stop()
		close(done)
	}

	gen := e.decoderGen
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				e.mbox.post(func() {
					if gen != e.decoderGen || !e.isPlaying() {
						return
					}
					e.emit(player.Progress{Progress: e.decoder.Progress(), UpdateTime: e.nowMillis()})
				})
			}
		}
	}()
}

func (e *Engine) cancelSampler() {
	if e.stopSampler != nil {
		e.stopSampler()
		e.stopSampler = nil
	}
}
