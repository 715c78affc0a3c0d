package audio

import (
	"sync"
	"time"
)

// Volume levels used for ducking.
const (
	QuietVolume  = 0.2
	NormalVolume = 1.0
)

const (
	fadeDuration = 300 * time.Millisecond
	fadeSteps    = 10
)

// Fader ramps output volume. Each step is handed to apply; a new ramp
// replaces the running one.
type Fader struct {
	apply func(volume float64)

	mu     sync.Mutex
	volume float64
	stop   chan struct{}
}

// NewFader creates a fader at full volume.
func NewFader(apply func(volume float64)) *Fader {
	return &Fader{apply: apply, volume: NormalVolume}
}

// Quiet lowers the volume for ducking.
func (f *Fader) Quiet() {
	f.FadeTo(QuietVolume, fadeDuration)
}

// DismissQuiet restores full volume.
func (f *Fader) DismissQuiet() {
	f.FadeTo(NormalVolume, fadeDuration)
}

// Volume returns the last applied volume.
func (f *Fader) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// FadeTo ramps from the current volume to target over d.
func (f *Fader) FadeTo(target float64, d time.Duration) {
	f.mu.Lock()
	f.stopLocked()
	from := f.volume
	stop := make(chan struct{})
	f.stop = stop
	f.mu.Unlock()

	if d <= 0 {
		f.set(target, stop)
		return
	}

	go func() {
		ticker := time.NewTicker(d / fadeSteps)
		defer ticker.Stop()
		for i := 1; i <= fadeSteps; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				v := from + (target-from)*float64(i)/fadeSteps
				if i == fadeSteps {
					v = target
				}
				f.set(v, stop)
			}
		}
	}()
}

// Stop cancels a running ramp and resets the volume to normal for the next
// decoder.
func (f *Fader) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
	f.volume = NormalVolume
}

func (f *Fader) stopLocked() {
	if f.stop != nil {
		close(f.stop)
		f.stop = nil
	}
}

func (f *Fader) set(volume float64, stop chan struct{}) {
	f.mu.Lock()
	if f.stop != stop {
		f.mu.Unlock()
		return
	}
	f.volume = volume
	f.mu.Unlock()
	f.apply(volume)
}
