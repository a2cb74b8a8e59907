package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"groupcal/internal/notify"
)

// Duration wraps time.Duration so windows and retention periods can be
// written in YAML as "59m" or "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// CategoryConfig overrides the tolerance window and message retention for one
// lead-time category.
type CategoryConfig struct {
	WindowMin Duration `yaml:"window_min,omitempty"`
	WindowMax Duration `yaml:"window_max,omitempty"`
	Retention Duration `yaml:"retention,omitempty"`
}

// Config is the runtime configuration. Credentials and provider identifiers
// stay in the environment; everything here is behavior the operator may tune,
// including the destination channel list which admin commands mutate at
// runtime.
type Config struct {
	// Timezone is the IANA zone used for display and day-boundary comparisons.
	Timezone string `yaml:"timezone"`

	// Listen is the HTTP listen address for the liveness endpoint.
	Listen string `yaml:"listen"`

	// PollInterval is the calendar polling period. It must stay well below
	// the narrowest category window or lead times can be missed entirely.
	PollInterval Duration `yaml:"poll_interval"`

	// RestartInterval is the planned process restart cadence.
	RestartInterval Duration `yaml:"restart_interval"`

	// HorizonDays bounds the future-looking event window per fetch.
	HorizonDays int `yaml:"horizon_days"`

	// MaxResults bounds the number of events per fetch.
	MaxResults int64 `yaml:"max_results"`

	// LedgerPath is where the fired-notification ledger is persisted.
	LedgerPath string `yaml:"ledger_path"`

	// RoleID, when set, is mentioned at the top of every notification.
	RoleID string `yaml:"role_id,omitempty"`

	// Channels are the destination channel IDs notifications fan out to.
	Channels []string `yaml:"channels"`

	// Categories holds optional per-category window/retention overrides.
	Categories map[string]CategoryConfig `yaml:"categories,omitempty"`

	mu   sync.Mutex
	path string
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:        "UTC",
		Listen:          "127.0.0.1:8080",
		PollInterval:    Duration(30 * time.Second),
		RestartInterval: Duration(24 * time.Hour),
		HorizonDays:     30,
		MaxResults:      20,
		LedgerPath:      "notified.json",
		Channels:        []string{},
	}
}

// Normalize fills in missing or zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(30 * time.Second)
	}
	if c.RestartInterval <= 0 {
		c.RestartInterval = Duration(24 * time.Hour)
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 30
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 20
	}
	if c.LedgerPath == "" {
		c.LedgerPath = "notified.json"
	}
	if c.Channels == nil {
		c.Channels = []string{}
	}
}

// Load loads configuration from the given YAML path. A missing file writes
// and returns the defaults, so first runs produce an editable config.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.path = path
			if err := cfg.Save(); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.path = path

	return &cfg, nil
}

// Save writes the configuration back to its path atomically via a temp file
// and rename.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no backing path")
	}

	c.Normalize()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".groupcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, c.path)
}

// Destinations returns a copy of the current channel list. Safe to call from
// the dispatch path while admin commands mutate the list.
func (c *Config) Destinations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Channels))
	copy(out, c.Channels)
	return out
}

// AddChannel adds a destination channel and saves the config. Returns false
// if the channel was already present.
func (c *Config) AddChannel(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.Channels {
		if ch == id {
			return false, nil
		}
	}
	c.Channels = append(c.Channels, id)
	return true, c.Save()
}

// RemoveChannel removes a destination channel and saves the config. Returns
// false if the channel was not present.
func (c *Config) RemoveChannel(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ch := range c.Channels {
		if ch == id {
			c.Channels = append(c.Channels[:i], c.Channels[i+1:]...)
			return true, c.Save()
		}
	}
	return false, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Specs returns the category specs with any configured overrides applied.
func (c *Config) Specs() []notify.Spec {
	specs := notify.DefaultSpecs()
	for i, spec := range specs {
		override, ok := c.Categories[string(spec.Category)]
		if !ok {
			continue
		}
		if override.WindowMin != 0 || override.WindowMax != 0 {
			specs[i].Window = notify.Window{
				Min: time.Duration(override.WindowMin),
				Max: time.Duration(override.WindowMax),
			}
		}
		if override.Retention != 0 {
			specs[i].Retention = time.Duration(override.Retention)
		}
	}
	return specs
}
