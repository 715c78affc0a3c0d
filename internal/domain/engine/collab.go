package engine

import (
	"context"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// Decoder plays one resolved track. Control methods are only called from the
// engine loop; listener callbacks may arrive on any goroutine.
type Decoder interface {
	// Prepare starts asynchronous preparation. Completion is reported
	// through DecoderListener.OnPrepared or OnError.
	Prepare() error
	Start() error
	Pause() error
	Stop() error
	// SeekTo starts an asynchronous seek reported through OnSeekComplete.
	SeekTo(ms int64) error
	SetSpeed(speed float64) error
	SetVolume(volume float64)
	SetLooping(looping bool)
	Release()

	Progress() int64
	Duration() int64
	IsPlaying() bool
	IsStalled() bool
	AudioSessionID() int
}

// DecoderListener receives decoder callbacks.
type DecoderListener interface {
	OnPrepared()
	OnCompletion()
	OnRepeat()
	OnSeekComplete()
	OnStalled(stalled bool)
	// OnBuffering reports buffered progress, either in milliseconds or as a
	// percentage of the duration.
	OnBuffering(buffered int64, isPercent bool)
	OnError(code player.ErrorCode, message string)
}

// DecoderFactory creates decoders bound to a resolved URI.
type DecoderFactory interface {
	NewDecoder(uri string, t track.Track, l DecoderListener) (Decoder, error)
}

// Resolver turns a track into a playable URI.
type Resolver interface {
	Resolve(ctx context.Context, t track.Track, quality player.SoundQuality) (string, error)
}

// CacheChecker reports whether a track is available without network access.
type CacheChecker interface {
	IsCached(ctx context.Context, t track.Track, quality player.SoundQuality) (bool, error)
}

// EffectManager applies audio effects to a decoder's audio session.
type EffectManager interface {
	Init(config []byte)
	UpdateConfig(config []byte)
	Attach(audioSessionID int)
	Detach()
	Release()
}

// FocusListener receives audio focus changes.
type FocusListener interface {
	OnLoss()
	OnLossTransient()
	OnLossTransientCanDuck()
	OnGain(lossTransient, lossTransientCanDuck bool)
}

// AudioFocus arbitrates audio output with other applications.
type AudioFocus interface {
	// Request asks for focus and reports whether it was granted.
	Request(l FocusListener) bool
	Abandon()
}

// PhoneListener receives call state changes.
type PhoneListener interface {
	OnIdle()
	OnRinging()
	OnOffHook()
}

// PhoneState watches telephony state.
type PhoneState interface {
	Register(l PhoneListener)
	Unregister()
	IsIdle() bool
}

// NoisyDetector reports when audio is about to become noisy, such as a
// headset being unplugged.
type NoisyDetector interface {
	Register(fn func())
	Unregister()
}

// Network is a connectivity snapshot.
type Network struct {
	Connected bool
	Wifi      bool
}

// NetworkMonitor reports connectivity changes.
type NetworkMonitor interface {
	Current() Network
	Subscribe(fn func(Network)) (cancel func())
}
