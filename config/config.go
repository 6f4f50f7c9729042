/*
Package config loads the server configuration.

SOURCES (later wins):
  1. Defaults (Default())
  2. YAML file (optional; -config flag)
  3. Environment variables (TIMELINE_*)
  4. Command-line flags (applied by cmd/server)

EXAMPLE FILE:
  server:
    port: 8080
    read_timeout: 15s
    write_timeout: 15s
    allowed_origins: ["http://localhost:5173"]
  database:
    path: timeline.db
  log:
    level: info
    format: json
  metrics:
    enabled: true
  timeline:
    budget_policy: manual_total

ENVIRONMENT:
  TIMELINE_PORT, TIMELINE_DB, TIMELINE_LOG_LEVEL, TIMELINE_LOG_FORMAT,
  TIMELINE_METRICS_ENABLED, TIMELINE_BUDGET_POLICY, TIMELINE_ALLOWED_ORIGINS
  (comma separated)
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/timeline-engine/timeline"
)

type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type TimelineConfig struct {
	BudgetPolicy string `yaml:"budget_policy"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Timeline TimelineConfig `yaml:"timeline"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			ShutdownGrace:  30 * time.Second,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{Path: "timeline.db"},
		Log:      LogConfig{Level: "info", Format: "json"},
		Metrics:  MetricsConfig{Enabled: true},
		Timeline: TimelineConfig{BudgetPolicy: string(timeline.BudgetManualTotal)},
	}
}

// Load reads path over the defaults (an empty path skips the file), then
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	if err := overrideFromEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func overrideFromEnv(cfg *Config, lookup lookupFunc) error {
	if v, ok := lookup("TIMELINE_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TIMELINE_PORT: %w", err)
		}
		cfg.Server.Port = p
	}
	if v, ok := lookup("TIMELINE_DB"); ok && v != "" {
		cfg.Database.Path = v
	}
	if v, ok := lookup("TIMELINE_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup("TIMELINE_LOG_FORMAT"); ok && v != "" {
		cfg.Log.Format = v
	}
	if v, ok := lookup("TIMELINE_METRICS_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TIMELINE_METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = b
	}
	if v, ok := lookup("TIMELINE_BUDGET_POLICY"); ok && v != "" {
		cfg.Timeline.BudgetPolicy = v
	}
	if v, ok := lookup("TIMELINE_ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if _, err := timeline.ParseBudgetPolicy(c.Timeline.BudgetPolicy); err != nil {
		return fmt.Errorf("timeline.budget_policy: %w", err)
	}
	return nil
}

// BudgetPolicy returns the parsed policy. Call after Validate.
func (c Config) BudgetPolicy() timeline.BudgetPolicy {
	bp, _ := timeline.ParseBudgetPolicy(c.Timeline.BudgetPolicy)
	return bp
}
