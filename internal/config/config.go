// Package config handles TOML-based configuration loading and validation.
// TOML is parsed as data only. Environment variables (optionally read from a
// .env file) override the file, and CLI flags override both.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"mpvrelay/internal/player"
)

const appName = "mpvrelay"

// Duration is a time.Duration that decodes from strings like "1s" or "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Listen      string            `toml:"listen"`
	MPVPath     string            `toml:"mpv_path"`
	Resolution  int               `toml:"resolution"`
	HWDec       bool              `toml:"hwdec"`
	Ytdl        bool              `toml:"ytdl"`
	ForceWindow bool              `toml:"force_window"`
	OSC         bool              `toml:"osc"`
	Prefetch    bool              `toml:"prefetch"`
	Options     []player.KeyValue `toml:"options"`
	PollTimeout Duration          `toml:"poll_timeout"`
	History     bool              `toml:"history"`
	MetricsAddr string            `toml:"metrics_addr"`
	LogLevel    string            `toml:"log_level"`
	LogFormat   string            `toml:"log_format"`
	Debug       bool              `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen:      "0.0.0.0:8000",
		MPVPath:     "mpv",
		Resolution:  720,
		HWDec:       true,
		Ytdl:        true,
		ForceWindow: true,
		OSC:         true,
		Prefetch:    true,
		PollTimeout: Duration{time.Second},
		History:     true,
		LogLevel:    "info",
		LogFormat:   "auto",
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file, merges it over defaults and applies
// environment overrides. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// LoadEnvFile reads KEY=value pairs from the given files (".env" when none
// are named) into the process environment. Variables already set win.
// A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// applyEnv overrides fields from MPVRELAY_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("MPVRELAY_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("MPVRELAY_MPV_PATH"); v != "" {
		c.MPVPath = v
	}
	if v := os.Getenv("MPVRELAY_RESOLUTION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MPVRELAY_RESOLUTION: %w", err)
		}
		c.Resolution = n
	}
	if v := os.Getenv("MPVRELAY_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("MPVRELAY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MPVRELAY_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	return nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("listen address %q: %w", c.Listen, err)
	}

	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("metrics address %q: %w", c.MetricsAddr, err)
		}
	}

	if c.MPVPath == "" {
		return fmt.Errorf("mpv path cannot be empty")
	}

	if c.Resolution < 144 || c.Resolution > 4320 {
		return fmt.Errorf("unsupported resolution %d (valid: 144-4320)", c.Resolution)
	}

	if c.PollTimeout.Duration <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %s", c.PollTimeout)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unsupported log level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("unsupported log format %q (valid: auto, text, json)", c.LogFormat)
	}

	for i, opt := range c.Options {
		if opt.Key == "" {
			return fmt.Errorf("option %d has an empty key", i)
		}
	}

	return nil
}

// PlayerOptions converts the configuration into mpv options. useYtdlp
// reports whether yt-dlp was found on this system.
func (c *Config) PlayerOptions(useYtdlp bool) player.Options {
	return player.Options{
		HardwareDecoding: c.HWDec,
		Resolution:       c.Resolution,
		Ytdl:             c.Ytdl,
		UseYtdlp:         useYtdlp,
		ForceWindow:      c.ForceWindow,
		OSC:              c.OSC,
		Prefetch:         c.Prefetch,
		Extra:            c.Options,
	}
}

// HistoryPath returns the path to the history database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appName, "history.db"), nil
}
