package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupcal/internal/notify"
)

func TestLoadCreatesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groupcal.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, time.Duration(cfg.PollInterval), 30*time.Second)
	assert.Equal(t, 30, cfg.HorizonDays)
	assert.Equal(t, int64(20), cfg.MaxResults)

	// The default config was written out for the operator to edit.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadParsesDurationsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groupcal.yaml")
	yaml := `
timezone: Asia/Bangkok
poll_interval: 15s
restart_interval: 12h
role_id: "42"
channels: ["111", "222"]
categories:
  one_hour_before:
    window_min: 58m
    window_max: 62m
    retention: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, time.Duration(cfg.PollInterval))
	assert.Equal(t, 12*time.Hour, time.Duration(cfg.RestartInterval))
	assert.Equal(t, []string{"111", "222"}, cfg.Destinations())

	var oneHour notify.Spec
	for _, s := range cfg.Specs() {
		if s.Category == notify.OneHourBefore {
			oneHour = s
		}
	}
	assert.Equal(t, 58*time.Minute, oneHour.Window.Min)
	assert.Equal(t, 62*time.Minute, oneHour.Window.Max)
	assert.Equal(t, 30*time.Minute, oneHour.Retention)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groupcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval: soon\n"), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAddRemoveChannelPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groupcal.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	added, err := cfg.AddChannel("999")
	require.NoError(t, err)
	assert.True(t, added)

	// Adding the same channel again is a no-op.
	added, err = cfg.AddChannel("999")
	require.NoError(t, err)
	assert.False(t, added)

	// The mutation survived the round-trip to disk.
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"999"}, reloaded.Destinations())

	removed, err := cfg.RemoveChannel("999")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = cfg.RemoveChannel("999")
	require.NoError(t, err)
	assert.False(t, removed)

	reloaded, err = Load(path)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Destinations())
}

func TestLocationInvalidTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Not/AZone"
	_, err := cfg.Location()
	assert.Error(t, err)
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 30*time.Second, time.Duration(cfg.PollInterval))
	assert.Equal(t, 24*time.Hour, time.Duration(cfg.RestartInterval))
	assert.Equal(t, "notified.json", cfg.LedgerPath)
	assert.NotNil(t, cfg.Channels)
}
