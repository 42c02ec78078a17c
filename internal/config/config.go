// Package config loads NBFM/MPT-1327 pipeline configuration using koanf/v2,
// mirroring spec.md §6's option table.
//
// Grounded on dantte-lp-gobfd's internal/config/config.go: defaults loaded
// into koanf first, a YAML file layered on top, then NBFM_-prefixed
// environment variables, unmarshalled into a typed struct and validated.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// SquelchConfig mirrors spec.md §6's squelch.* options.
type SquelchConfig struct {
	Alpha       float64 `koanf:"alpha"`
	ThresholdDB float64 `koanf:"thresholddb"`
	Ramp        int     `koanf:"ramp"`
}

// Config holds the complete per-channel pipeline configuration, per
// spec.md §6.
type Config struct {
	ChannelBandwidthHz float64          `koanf:"channelbandwidth"`
	OutputSampleRateHz float64          `koanf:"outputsamplerate"`
	Squelch            SquelchConfig    `koanf:"squelch"`
	ChannelType        string           `koanf:"channeltype"` // "STANDARD" or "TRAFFIC"
	CallTimeoutMillis  int              `koanf:"calltimeout"`
	ChannelMap         map[string]int64 `koanf:"channelmap"` // channel number (string key) -> Hz
}

// DefaultConfig returns a Config populated with spec.md §6's stated
// defaults; channelBandwidth and channelMap have no default and must be
// supplied.
func DefaultConfig() *Config {
	return &Config{
		OutputSampleRateHz: 8000,
		Squelch: SquelchConfig{
			Alpha:       0.0001,
			ThresholdDB: -78,
			Ramp:        4,
		},
		ChannelType:       "STANDARD",
		CallTimeoutMillis: 10000,
	}
}

// envPrefix is the environment variable prefix for this module's
// configuration. Variables are named NBFM_<SECTION>_<KEY>, e.g.
// NBFM_SQUELCH_ALPHA.
const envPrefix = "NBFM_"

// Load reads configuration from an optional YAML file at path (skipped if
// path is empty), overlays NBFM_-prefixed environment variable overrides,
// and merges on top of DefaultConfig(). Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms NBFM_SQUELCH_ALPHA -> squelch.alpha.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"outputsamplerate":    defaults.OutputSampleRateHz,
		"squelch.alpha":       defaults.Squelch.Alpha,
		"squelch.thresholddb": defaults.Squelch.ThresholdDB,
		"squelch.ramp":        defaults.Squelch.Ramp,
		"channeltype":         defaults.ChannelType,
		"calltimeout":         defaults.CallTimeoutMillis,
	}
	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

// Validation errors.
var (
	ErrInvalidChannelBandwidth = errors.New("channelbandwidth must be > 0")
	ErrInvalidOutputSampleRate = errors.New("outputsamplerate must be > 0")
	ErrInvalidSquelchAlpha     = errors.New("squelch.alpha must be in (0,1]")
	ErrInvalidSquelchRamp      = errors.New("squelch.ramp must be >= 0")
	ErrInvalidChannelType      = errors.New("channeltype must be STANDARD or TRAFFIC")
	ErrInvalidCallTimeout      = errors.New("calltimeout must be >= 0")
)

// ValidChannelTypes lists the recognized channelType strings.
var ValidChannelTypes = map[string]bool{
	"STANDARD": true,
	"TRAFFIC":  true,
}

// Validate checks the configuration for logical errors, returning the
// first one encountered.
func Validate(cfg *Config) error {
	if cfg.ChannelBandwidthHz <= 0 {
		return ErrInvalidChannelBandwidth
	}
	if cfg.OutputSampleRateHz <= 0 {
		return ErrInvalidOutputSampleRate
	}
	if cfg.Squelch.Alpha <= 0 || cfg.Squelch.Alpha > 1 {
		return ErrInvalidSquelchAlpha
	}
	if cfg.Squelch.Ramp < 0 {
		return ErrInvalidSquelchRamp
	}
	if !ValidChannelTypes[strings.ToUpper(cfg.ChannelType)] {
		return ErrInvalidChannelType
	}
	if cfg.CallTimeoutMillis < 0 {
		return ErrInvalidCallTimeout
	}
	return nil
}
