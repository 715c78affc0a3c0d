package player

import (
	"context"
	"fmt"

	"github.com/edumarques81/stellar-offline-player/internal/infra/store"
)

const (
	keySoundQuality       = "sound_quality"
	keyAudioEffectConfig  = "audio_effect_config"
	keyAudioEffectEnabled = "audio_effect_enabled"
	keyOnlyWifiNetwork    = "only_wifi_network"
	keyIgnoreAudioFocus   = "ignore_audio_focus"
)

// Settings are the player preferences consulted by the engine.
type Settings struct {
	SoundQuality       SoundQuality `json:"soundQuality"`
	AudioEffectConfig  []byte       `json:"audioEffectConfig,omitempty"`
	AudioEffectEnabled bool         `json:"audioEffectEnabled"`
	OnlyWifiNetwork    bool         `json:"onlyWifiNetwork"`
	IgnoreAudioFocus   bool         `json:"ignoreAudioFocus"`
}

// Config persists Settings under PlayerConfig:<id>.
type Config struct {
	ns store.Namespace
}

// NewConfig returns the config of playerID.
func NewConfig(backend store.Backend, playerID string) *Config {
	return &Config{ns: backend.Namespace("PlayerConfig:" + playerID)}
}

// Load reads all settings. Missing keys take their zero defaults.
func (c *Config) Load(ctx context.Context) (Settings, error) {
	var s Settings

	quality, err := store.GetInt(ctx, c.ns, keySoundQuality, int(QualityStandard))
	if err != nil {
		return s, err
	}
	s.SoundQuality = SoundQualityFromOrdinal(quality)

	effect, _, err := c.ns.Get(ctx, keyAudioEffectConfig)
	if err != nil {
		return s, fmt.Errorf("failed to load audio effect config: %w", err)
	}
	s.AudioEffectConfig = effect

	if s.AudioEffectEnabled, err = store.GetBool(ctx, c.ns, keyAudioEffectEnabled, false); err != nil {
		return s, err
	}
	if s.OnlyWifiNetwork, err = store.GetBool(ctx, c.ns, keyOnlyWifiNetwork, false); err != nil {
		return s, err
	}
	if s.IgnoreAudioFocus, err = store.GetBool(ctx, c.ns, keyIgnoreAudioFocus, false); err != nil {
		return s, err
	}
	return s, nil
}

// SetSoundQuality stores the sound quality.
func (c *Config) SetSoundQuality(ctx context.Context, q SoundQuality) error {
	return store.PutInt(ctx, c.ns, keySoundQuality, int(q))
}

// SetAudioEffectConfig stores the opaque audio effect configuration.
func (c *Config) SetAudioEffectConfig(ctx context.Context, config []byte) error {
	if len(config) == 0 {
		return c.ns.Delete(ctx, keyAudioEffectConfig)
	}
	return c.ns.Put(ctx, keyAudioEffectConfig, config)
}

// SetAudioEffectEnabled stores whether audio effects are enabled.
func (c *Config) SetAudioEffectEnabled(ctx context.Context, enabled bool) error {
	return store.PutBool(ctx, c.ns, keyAudioEffectEnabled, enabled)
}

// SetOnlyWifiNetwork stores the Wi-Fi only policy.
func (c *Config) SetOnlyWifiNetwork(ctx context.Context, only bool) error {
	return store.PutBool(ctx, c.ns, keyOnlyWifiNetwork, only)
}

// SetIgnoreAudioFocus stores whether audio focus is ignored.
func (c *Config) SetIgnoreAudioFocus(ctx context.Context, ignore bool) error {
	return store.PutBool(ctx, c.ns, keyIgnoreAudioFocus, ignore)
}

// Save writes every setting.
func (c *Config) Save(ctx context.Context, s Settings) error {
	if err := c.SetSoundQuality(ctx, s.SoundQuality); err != nil {
		return err
	}
	if err := c.SetAudioEffectConfig(ctx, s.AudioEffectConfig); err != nil {
		return err
	}
	if err := c.SetAudioEffectEnabled(ctx, s.AudioEffectEnabled); err != nil {
		return err
	}
	if err := c.SetOnlyWifiNetwork(ctx, s.OnlyWifiNetwork); err != nil {
		return err
	}
	return c.SetIgnoreAudioFocus(ctx, s.IgnoreAudioFocus)
}
