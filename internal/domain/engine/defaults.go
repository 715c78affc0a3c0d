package engine

import (
	"context"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
)

// Defaults used when a collaborator is not provided.

type notCached struct{}

func (notCached) IsCached(context.Context, track.Track, player.SoundQuality) (bool, error) {
	return false, nil
}

type noEffects struct{}

func (noEffects) Init([]byte)         {}
func (noEffects) UpdateConfig([]byte) {}
func (noEffects) Attach(int)          {}
func (noEffects) Detach()             {}
func (noEffects) Release()            {}

type grantedFocus struct{}

func (grantedFocus) Request(FocusListener) bool { return true }
func (grantedFocus) Abandon()                   {}

type idlePhone struct{}

func (idlePhone) Register(PhoneListener) {}
func (idlePhone) Unregister()            {}
func (idlePhone) IsIdle() bool           { return true }

type quietOutput struct{}

func (quietOutput) Register(func()) {}
func (quietOutput) Unregister()     {}

type wifiNetwork struct{}

func (wifiNetwork) Current() Network               { return Network{Connected: true, Wifi: true} }
func (wifiNetwork) Subscribe(func(Network)) func() { return func() {} }
