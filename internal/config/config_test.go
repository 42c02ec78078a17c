package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAppliedWhenNoFile(t *testing.T) {
	t.Setenv("NBFM_CHANNELBANDWIDTH", "12500")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, float64(12500), cfg.ChannelBandwidthHz)
	assert.Equal(t, float64(8000), cfg.OutputSampleRateHz)
	assert.Equal(t, 0.0001, cfg.Squelch.Alpha)
	assert.Equal(t, -78.0, cfg.Squelch.ThresholdDB)
	assert.Equal(t, 4, cfg.Squelch.Ramp)
	assert.Equal(t, "STANDARD", cfg.ChannelType)
	assert.Equal(t, 10000, cfg.CallTimeoutMillis)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nbfm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
channelbandwidth: 25000
squelch:
  thresholddb: -70
channeltype: TRAFFIC
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, float64(25000), cfg.ChannelBandwidthHz)
	assert.Equal(t, -70.0, cfg.Squelch.ThresholdDB)
	assert.Equal(t, "TRAFFIC", cfg.ChannelType)
	// Untouched defaults survive the partial override.
	assert.Equal(t, 0.0001, cfg.Squelch.Alpha)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nbfm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
channelbandwidth: 12500
squelch:
  ramp: 2
`), 0o644))

	t.Setenv("NBFM_SQUELCH_RAMP", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Squelch.Ramp)
}

func TestValidate_RejectsInvalidConfigurations(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.ChannelBandwidthHz = 12500
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero channel bandwidth", func(c *Config) { c.ChannelBandwidthHz = 0 }, ErrInvalidChannelBandwidth},
		{"zero output rate", func(c *Config) { c.OutputSampleRateHz = 0 }, ErrInvalidOutputSampleRate},
		{"alpha too large", func(c *Config) { c.Squelch.Alpha = 1.5 }, ErrInvalidSquelchAlpha},
		{"negative ramp", func(c *Config) { c.Squelch.Ramp = -1 }, ErrInvalidSquelchRamp},
		{"bad channel type", func(c *Config) { c.ChannelType = "BOGUS" }, ErrInvalidChannelType},
		{"negative call timeout", func(c *Config) { c.CallTimeoutMillis = -1 }, ErrInvalidCallTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tc.wantErr)
		})
	}
}

func TestValidate_AcceptsDefaultsWithBandwidthSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChannelBandwidthHz = 12500
	assert.NoError(t, Validate(cfg))
}
