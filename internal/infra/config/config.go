// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Library  LibraryConfig  `yaml:"library"`
	Presets  PresetsConfig  `yaml:"presets"`
	Playback PlaybackConfig `yaml:"playback"`
	Cast     CastConfig     `yaml:"cast"`
	Random   []RandomConfig `yaml:"random"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8096"`
}

// LibraryConfig represents the sound catalog configuration.
type LibraryConfig struct {
	Path string `yaml:"path" validate:"required"` // catalog YAML file
	Root string `yaml:"root"`                     // directory holding the audio files
}

// PresetsConfig represents preset store configuration.
type PresetsConfig struct {
	Path string `yaml:"path" validate:"required"` // preset store YAML file
}

// PlaybackConfig represents engine tuning knobs.
type PlaybackConfig struct {
	GraceWindowSec int `yaml:"grace_window_sec" default:"300" validate:"gte=10,lte=3600"`
	SampleRate     int `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
}

// CastConfig represents the remote receiver configuration.
type CastConfig struct {
	ReceiverURL string `yaml:"receiver_url"`
	TimeoutMs   int    `yaml:"timeout_ms" default:"3000" validate:"gte=100,lte=30000"`
}

// RandomConfig represents one random-preset generator configuration.
type RandomConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for operational fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("QUIETFALL_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("QUIETFALL_LIBRARY"); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv("QUIETFALL_PRESETS"); v != "" {
		c.Presets.Path = v
	}
	if v := os.Getenv("QUIETFALL_CAST_RECEIVER"); v != "" {
		c.Cast.ReceiverURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// GraceWindow returns the pause grace window as a duration.
func (c *Config) GraceWindow() time.Duration {
	return time.Duration(c.Playback.GraceWindowSec) * time.Second
}

// CastTimeout returns the cast request timeout as a duration.
func (c *Config) CastTimeout() time.Duration {
	return time.Duration(c.Cast.TimeoutMs) * time.Millisecond
}
