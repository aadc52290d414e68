// Package config loads service settings from a .env file and the process
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"cookiewarden/internal/database"
)

// EnvPrefix prefixes every variable read into Config.
const EnvPrefix = "COOKIEWARDEN"

var (
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrUnknownDriver   = errors.New("unknown database driver")
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8085"`

	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"postgres"`
	DatabaseDSN    string `envconfig:"DATABASE_DSN"`

	RedisURL     string        `envconfig:"REDIS_URL"`
	SyncProfile  string        `envconfig:"SYNC_PROFILE" default:"default"`
	SyncInterval time.Duration `envconfig:"SYNC_INTERVAL" default:"5m"`
	DeviceID     string        `envconfig:"DEVICE_ID"`

	Cooldown               time.Duration `envconfig:"COOLDOWN" default:"10s"`
	NeutralizeBeforeDelete bool          `envconfig:"NEUTRALIZE_BEFORE_DELETE" default:"true"`
	SweepOnStartup         bool          `envconfig:"SWEEP_ON_STARTUP" default:"true"`
	CrossSiteByRegistrable bool          `envconfig:"CROSS_SITE_BY_REGISTRABLE_DOMAIN" default:"false"`

	BrowserControlURL  string        `envconfig:"BROWSER_CONTROL_URL"`
	BrowserHeadless    bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	CookiePollInterval time.Duration `envconfig:"COOKIE_POLL_INTERVAL" default:"1s"`

	TrackerListPath        string        `envconfig:"TRACKER_LIST_PATH"`
	TrackerListURLs        []string      `envconfig:"TRACKER_LIST_URLS"`
	TrackerRefreshInterval time.Duration `envconfig:"TRACKER_REFRESH_INTERVAL" default:"24h"`

	AuthSecret string `envconfig:"AUTH_SECRET"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env, if present, and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"SYNC_INTERVAL", c.SyncInterval},
		{"COOLDOWN", c.Cooldown},
		{"COOKIE_POLL_INTERVAL", c.CookiePollInterval},
		{"TRACKER_REFRESH_INTERVAL", c.TrackerRefreshInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("config: %s: %w: %s", d.name, ErrInvalidDuration, d.value)
		}
	}

	switch strings.ToLower(c.DatabaseDriver) {
	case database.DriverPostgres, database.DriverSQLite:
	default:
		return fmt.Errorf("config: DATABASE_DRIVER: %w: %q", ErrUnknownDriver, c.DatabaseDriver)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the configured log level, info when unparsable.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// CloudEnabled reports whether a redis cloud scope is configured.
func (c *Config) CloudEnabled() bool {
	return c.RedisURL != ""
}

// AuthEnabled reports whether HTTP routes require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.AuthSecret != ""
}
