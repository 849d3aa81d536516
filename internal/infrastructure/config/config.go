// Package config loads cardflow runtime settings from YAML or TOML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL        = "https://api.telegram.org"
	DefaultPollTimeout   = 30 * time.Second
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultLogLevel      = "info"
	DefaultMaxAttempts   = 3
	DefaultRetryDelay    = 200 * time.Millisecond
	DefaultCallTimeout   = 10 * time.Second

	EnvToken    = "CARDFLOW_TOKEN"
	EnvTimezone = "CARDFLOW_TIMEZONE"
	EnvLogLevel = "CARDFLOW_LOG_LEVEL"
	EnvFeedAddr = "CARDFLOW_FEED_ADDR"
	EnvRoster   = "CARDFLOW_ROSTER"
)

// SearchFiles are tried in order when no config path is given.
var SearchFiles = []string{"cardflow.yaml", "cardflow.yml", "cardflow.toml"}

// ErrNoToken is returned by Validate when no bot token is configured.
var ErrNoToken = errors.New("telegram bot token is not set")

// TelegramConfig configures the Bot API connection.
type TelegramConfig struct {
	Token       string        `yaml:"token" toml:"token"`
	APIURL      string        `yaml:"api_url" toml:"api_url"`
	PollTimeout time.Duration `yaml:"poll_timeout" toml:"poll_timeout"`
}

// GatewayConfig bounds outgoing platform calls.
type GatewayConfig struct {
	MaxAttempts int           `yaml:"max_attempts" toml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay" toml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
}

// FeedConfig configures the websocket event feed. An empty Addr disables it.
type FeedConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Config is the full runtime configuration.
type Config struct {
	Telegram      TelegramConfig `yaml:"telegram" toml:"telegram"`
	Gateway       GatewayConfig  `yaml:"gateway" toml:"gateway"`
	Feed          FeedConfig     `yaml:"feed" toml:"feed"`
	Timezone      string         `yaml:"timezone" toml:"timezone"`
	SessionTTL    time.Duration  `yaml:"session_ttl" toml:"session_ttl"`
	SweepInterval time.Duration  `yaml:"sweep_interval" toml:"sweep_interval"`
	LogLevel      string         `yaml:"log_level" toml:"log_level"`
	RosterFile    string         `yaml:"roster_file" toml:"roster_file"`

	// Source is the file the config was read from, if any.
	Source string `yaml:"-" toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		Telegram: TelegramConfig{
			APIURL:      DefaultAPIURL,
			PollTimeout: DefaultPollTimeout,
		},
		Gateway: GatewayConfig{
			MaxAttempts: DefaultMaxAttempts,
			RetryDelay:  DefaultRetryDelay,
			Timeout:     DefaultCallTimeout,
		},
		Timezone:      "Local",
		SessionTTL:    DefaultSessionTTL,
		SweepInterval: DefaultSweepInterval,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads path, or the first of SearchFiles in dir when path is empty,
// over the defaults and then applies environment overrides. A missing
// search file is not an error; a missing explicit path is.
func Load(path, dir string) (Config, error) {
	cfg := Default()

	if path == "" {
		for _, name := range SearchFiles {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
		cfg.Source = path
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvTimezone)); v != "" {
		c.Timezone = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvFeedAddr)); v != "" {
		c.Feed.Addr = v
	}
	if v := strings.TrimSpace(getenv(EnvRoster)); v != "" {
		c.RosterFile = v
	}
}

// Validate checks the settings needed to run the bot.
func (c Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: set %s or telegram.token", ErrNoToken, EnvToken)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	return ParseLevel(c.LogLevel)
}

// ParseLevel parses debug, info, warn or error. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
