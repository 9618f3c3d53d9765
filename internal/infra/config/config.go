// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Player backends.
const (
	BackendMPRIS   = "mpris"
	BackendSpotify = "spotify"
)

// Config represents the application configuration.
type Config struct {
	Store         StoreConfig        `yaml:"store"`
	Player        PlayerConfig       `yaml:"player"`
	Notifications NotificationConfig `yaml:"notifications"`
	Spotify       SpotifyConfig      `yaml:"spotify"`
}

// StoreConfig represents where and how rules and settings are stored.
type StoreConfig struct {
	Dir                 string `yaml:"dir" env:"AUTOSKIP_STORE_DIR"`
	ReadAttempts        uint   `yaml:"read_attempts" default:"3" validate:"gte=1,lte=10"`
	ReadRetryIntervalMs int    `yaml:"read_retry_interval_ms" default:"1000" validate:"gte=0,lte=60000"`
}

// PlayerConfig represents the media player backend configuration.
type PlayerConfig struct {
	Backend                string         `yaml:"backend" default:"mpris" env:"AUTOSKIP_PLAYER" validate:"oneof=mpris spotify"`
	ConnectRetryIntervalMs int            `yaml:"connect_retry_interval_ms" default:"1000" validate:"gte=1,lte=60000"`
	Settings               map[string]any `yaml:"settings"`
}

// NotificationConfig represents desktop notification configuration.
type NotificationConfig struct {
	AppName   string `yaml:"app_name" default:"autoskip"`
	TimeoutMs int    `yaml:"timeout_ms" default:"3000" validate:"gte=-1"`
}

// SpotifyConfig represents Spotify API credentials for the spotify backend.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RefreshToken string `yaml:"refresh_token" env:"SPOTIFY_REFRESH_TOKEN"`
}

// MPRISSettings are the player.settings of the mpris backend.
type MPRISSettings struct {
	BusName string `yaml:"bus_name" mapstructure:"bus_name" default:"org.mpris.MediaPlayer2.spotify" validate:"required"`
}

// SpotifySettings are the player.settings of the spotify backend.
type SpotifySettings struct {
	PollIntervalMs int    `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms" default:"2000" validate:"gte=250"`
	Market         string `yaml:"market" mapstructure:"market" validate:"omitempty,len=2"`
}

// DefaultDir returns ~/.config/autoskip on every platform.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "autoskip")
	}
	return filepath.Join(home, ".config", "autoskip")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "autoskip.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	// Override with environment variables
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = DefaultDir()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	switch c.Player.Backend {
	case BackendMPRIS:
		if _, err := c.MPRIS(); err != nil {
			return err
		}
	case BackendSpotify:
		if _, err := c.SpotifyPlayer(); err != nil {
			return err
		}
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify backend requires client_id, client_secret and refresh_token")
		}
	}

	return nil
}

// MPRIS decodes player.settings for the mpris backend.
func (c *Config) MPRIS() (MPRISSettings, error) {
	var s MPRISSettings
	if err := decodeSettings(c.Player.Settings, &s); err != nil {
		return s, errors.Wrap(err, "invalid mpris settings")
	}
	return s, nil
}

// SpotifyPlayer decodes player.settings for the spotify backend.
func (c *Config) SpotifyPlayer() (SpotifySettings, error) {
	var s SpotifySettings
	if err := decodeSettings(c.Player.Settings, &s); err != nil {
		return s, errors.Wrap(err, "invalid spotify settings")
	}
	return s, nil
}

// ArtistsPath returns the artists file path.
func (c *Config) ArtistsPath() string {
	return filepath.Join(c.Store.Dir, "artists.json")
}

// SettingsPath returns the settings file path.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Store.Dir, "settings.json")
}

// ReadRetryInterval returns the store read retry interval.
func (c *Config) ReadRetryInterval() time.Duration {
	return time.Duration(c.Store.ReadRetryIntervalMs) * time.Millisecond
}

// ConnectRetryInterval returns the pause between startup player queries.
func (c *Config) ConnectRetryInterval() time.Duration {
	return time.Duration(c.Player.ConnectRetryIntervalMs) * time.Millisecond
}

// decodeSettings decodes a settings map into out, then applies defaults and
// validation.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
