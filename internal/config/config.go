// Package config loads the player configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Decoder backends.
const (
	DecoderMPD = "mpd"
	DecoderSim = "sim"
)

// Config holds application configuration
type Config struct {
	// PlayerID names the persisted session. Default: "default"
	PlayerID string

	// Listen is the HTTP listen address. Default: ":3001"
	Listen string

	// DataDir holds the state database, history and the media cache.
	DataDir string

	// MusicDir is the root for relative track URIs.
	MusicDir string

	// StaticDir, when set, is served as the web UI.
	StaticDir string

	// Decoder selects the playback backend: "mpd" or "sim".
	Decoder string

	// IdleMinutes shuts the session down after this long without playback.
	// Zero disables the timer.
	IdleMinutes int

	AllowedOrigins []string

	Store    StoreConfig
	MPD      MPDConfig
	Redis    RedisConfig
	SocketIO SocketIOConfig
	Log      LogConfig
}

// StoreConfig holds state database configuration
type StoreConfig struct {
	Path string
}

// MPDConfig holds MPD connection settings
type MPDConfig struct {
	Host     string
	Port     int
	Password string
}

// RedisConfig configures the event relay. An empty URL disables it.
type RedisConfig struct {
	URL     string
	Channel string
}

// SocketIOConfig holds web UI transport settings
type SocketIOConfig struct {
	MaxExternal int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
	File  string
}

// Load reads configuration from file and environment. An empty path
// searches the config directory and the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(GetConfigDir())
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// A missing file is fine, a broken one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("STELLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dataDir := v.GetString("data_dir")
	cfg := &Config{
		PlayerID:       v.GetString("player.id"),
		Listen:         v.GetString("listen"),
		DataDir:        dataDir,
		MusicDir:       v.GetString("music_dir"),
		StaticDir:      v.GetString("static_dir"),
		Decoder:        strings.ToLower(v.GetString("decoder")),
		IdleMinutes:    v.GetInt("idle_minutes"),
		AllowedOrigins: v.GetStringSlice("allowed_origins"),
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		MPD: MPDConfig{
			Host:     v.GetString("mpd.host"),
			Port:     v.GetInt("mpd.port"),
			Password: v.GetString("mpd.password"),
		},
		Redis: RedisConfig{
			URL:     v.GetString("redis.url"),
			Channel: v.GetString("redis.channel"),
		},
		SocketIO: SocketIOConfig{
			MaxExternal: v.GetInt("socketio.max_external"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(dataDir, "player.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("player.id", "default")
	v.SetDefault("listen", ":3001")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("music_dir", "")
	v.SetDefault("static_dir", "")
	v.SetDefault("decoder", DecoderMPD)
	v.SetDefault("idle_minutes", 0)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("store.path", "")
	v.SetDefault("mpd.host", "localhost")
	v.SetDefault("mpd.port", 6600)
	v.SetDefault("mpd.password", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "stellar")
	v.SetDefault("socketio.max_external", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.PlayerID == "" {
		return fmt.Errorf("player.id must not be empty")
	}
	switch c.Decoder {
	case DecoderMPD, DecoderSim:
	default:
		return fmt.Errorf("unknown decoder %q", c.Decoder)
	}
	if c.IdleMinutes < 0 {
		return fmt.Errorf("idle_minutes must be >= 0, got %d", c.IdleMinutes)
	}
	if c.SocketIO.MaxExternal < 1 {
		return fmt.Errorf("socketio.max_external must be >= 1, got %d", c.SocketIO.MaxExternal)
	}
	return nil
}

// HistoryPath is the play history file under DataDir.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.json")
}

// CacheDir is the media cache directory under DataDir.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "stellar")
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(homeDir, ".local", "share", "stellar")
}

// Save writes configuration to path
func (c *Config) Save(path string) error {
	v := viper.New()

	v.Set("player.id", c.PlayerID)
	v.Set("listen", c.Listen)
	v.Set("data_dir", c.DataDir)
	v.Set("music_dir", c.MusicDir)
	v.Set("static_dir", c.StaticDir)
	v.Set("decoder", c.Decoder)
	v.Set("idle_minutes", c.IdleMinutes)
	v.Set("allowed_origins", c.AllowedOrigins)
	v.Set("store.path", c.Store.Path)
	v.Set("mpd.host", c.MPD.Host)
	v.Set("mpd.port", c.MPD.Port)
	v.Set("mpd.password", c.MPD.Password)
	v.Set("redis.url", c.Redis.URL)
	v.Set("redis.channel", c.Redis.Channel)
	v.Set("socketio.max_external", c.SocketIO.MaxExternal)
	v.Set("log.level", c.Log.Level)
	v.Set("log.file", c.Log.File)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return v.WriteConfigAs(path)
}
