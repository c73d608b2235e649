package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes a single ICS subscription feed merged into the
// event working set.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used as the feed's calendar ID.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Color is an optional hex color applied to the feed's events.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the JSON API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Timezone is an IANA zone name (or "Local") used to anchor "now".
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is fixed to "sunday"; the field exists so older configs
	// carrying it keep loading.
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// periodic snapshot refresh at the fetch boundary.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// APIBase is the base URL of the upstream event CRUD service. Empty
	// means the bundled in-memory source is used instead.
	APIBase string `yaml:"api_base" json:"api_base"`

	// CacheDir is where conditional-GET response bodies are cached.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Feeds is the list of subscribed ICS sources.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// ShowHolidays / ShowBirthdays set the initial static-source toggles.
	ShowHolidays  bool `yaml:"show_holidays" json:"show_holidays"`
	ShowBirthdays bool `yaml:"show_birthdays" json:"show_birthdays"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		LogLevel:     "info",
		Timezone:     "Local",
		WeekStart:    "sunday",
		RefreshCron:  "*/15 * * * *",
		CacheDir:     "./var/source-cache",
		Feeds:        []FeedConfig{},
		ShowHolidays: true,
	}
}

// Normalize fills missing/zero values with defaults so partially-filled
// configs from older versions still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.WeekStart == "" {
		c.WeekStart = "sunday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/source-cache"
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
}

// Load reads configuration from the given YAML path. On first run the
// file does not exist yet: a default config is written with 0600 perms
// and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Return cfg with the error so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory as needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
