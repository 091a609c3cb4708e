//nolint:testpackage // White-box tests require access to unexported identifiers in this package.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiles_Valid(t *testing.T) {
	require.NoError(t, Default().Validate())
	require.NoError(t, Terminal().Validate())
}

func TestLoad_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marginalia.yaml")
	body := `
territory:
  min_spacing: 120
actuator:
  stale_write: 200ms
  max_duration: 1s
layout:
  width: 72
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path, Default())
	require.NoError(t, err)
	assert.InDelta(t, 120, cfg.Territory.MinSpacing, 1e-9)
	assert.InDelta(t, 0.4, cfg.Territory.EyeLineRatio, 1e-9, "unset keys keep the base value")
	assert.Equal(t, 200*time.Millisecond, cfg.Actuator.StaleWrite)
	assert.Equal(t, time.Second, cfg.Actuator.MaxDuration)
	assert.Equal(t, 250*time.Millisecond, cfg.Actuator.MinDuration)
	assert.Equal(t, 72, cfg.Layout.Width)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "ratio out of range", body: "territory:\n  eye_line_ratio: 1.2\n", want: "territory.eye_line_ratio"},
		{name: "max below min", body: "actuator:\n  max_duration: 100ms\n", want: "actuator.max_duration"},
		{name: "negative gap", body: "layout:\n  gap: -1\n", want: "layout.gap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := Load(path, Default())
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), Default())
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("territory: [1, 2"), 0o600))
	_, err = Load(path, Default())
	assert.ErrorContains(t, err, "parse")

	cfg, err := Load("", Terminal())
	require.NoError(t, err)
	assert.Equal(t, Terminal(), cfg)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandTilde("~/x/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x/config.yaml"), got)

	got, err = expandTilde("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}

func TestProfile(t *testing.T) {
	cfg, err := Profile("pixel")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Profile("")
	require.NoError(t, err)
	assert.Equal(t, Terminal(), cfg)

	_, err = Profile("inches")
	require.ErrorIs(t, err, ErrInvalid)
}
