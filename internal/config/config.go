// Package config loads the daemon configuration: defaults, then an optional
// JSONC config file, then command-line overrides applied by the caller.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailscale/hujson"
)

// Config holds all daemon configuration options.
type Config struct {
	HTTPAddr string `json:"http_addr"`
	UDPAddr  string `json:"udp_addr"`
	DBPath   string `json:"db_path"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"` // "text" or "json"

	// Cadence for embedded display clients, in seconds.
	TickSeconds        int `json:"tick_seconds"`
	ResyncSeconds      int `json:"resync_seconds"`
	ForceResyncSeconds int `json:"force_resync_seconds"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:           ":8080",
		UDPAddr:            ":9000",
		DBPath:             "cuecall.db",
		LogLevel:           "info",
		LogFormat:          "text",
		TickSeconds:        1,
		ResyncSeconds:      1,
		ForceResyncSeconds: 30,
	}
}

// Load reads the config file at path and merges it over the defaults. An
// empty path returns the defaults unchanged; a named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	fileCfg, err := parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg = merge(cfg, fileCfg)
	if err := validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func parse(data []byte) (Config, error) {
	// The file is JSONC: comments and trailing commas are allowed.
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.HTTPAddr != "" {
		base.HTTPAddr = overlay.HTTPAddr
	}
	if overlay.UDPAddr != "" {
		base.UDPAddr = overlay.UDPAddr
	}
	if overlay.DBPath != "" {
		base.DBPath = overlay.DBPath
	}
	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}
	if overlay.LogFormat != "" {
		base.LogFormat = overlay.LogFormat
	}
	if overlay.TickSeconds > 0 {
		base.TickSeconds = overlay.TickSeconds
	}
	if overlay.ResyncSeconds > 0 {
		base.ResyncSeconds = overlay.ResyncSeconds
	}
	if overlay.ForceResyncSeconds > 0 {
		base.ForceResyncSeconds = overlay.ForceResyncSeconds
	}
	return base
}

func validate(cfg Config) error {
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}
	if cfg.TickSeconds <= 0 || cfg.ResyncSeconds <= 0 || cfg.ForceResyncSeconds <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	return nil
}

// TickInterval returns the display tick cadence as a duration.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// ResyncInterval returns the authoritative poll cadence as a duration.
func (c Config) ResyncInterval() time.Duration {
	return time.Duration(c.ResyncSeconds) * time.Second
}

// ForceResyncInterval returns the forced re-anchor window as a duration.
func (c Config) ForceResyncInterval() time.Duration {
	return time.Duration(c.ForceResyncSeconds) * time.Second
}
