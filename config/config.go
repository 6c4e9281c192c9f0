// Package config loads server settings from a YAML file, a .env file and
// LEAVE_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const envPrefix = "LEAVE_"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Policy   PolicyConfig   `yaml:"policy"`
	Reporter ReporterConfig `yaml:"reporter"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string       `yaml:"level"`
	Parsed logrus.Level `yaml:"-"`
}

// PolicyConfig tunes the request lifecycle.
type PolicyConfig struct {
	AllowNegativeBalance bool `yaml:"allow_negative_balance"`
}

// ReporterConfig controls the background roster status reporter.
type ReporterConfig struct {
	Enabled     bool          `yaml:"enabled"`
	IntervalRaw string        `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{Path: "./data/leave.db"},
		Log:      LogConfig{Level: "info"},
		Reporter: ReporterConfig{Enabled: true, IntervalRaw: "1h"},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies the
// .env file (if present) and LEAVE_* environment overrides. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookupEnv("SERVER_PORT"); ok {
		c.Server.Port = v
	}
	if v, ok := lookupEnv("ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookupEnv("DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookupEnv("REPORTER_INTERVAL"); ok {
		c.Reporter.IntervalRaw = v
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"ALLOW_NEGATIVE_BALANCE", &c.Policy.AllowNegativeBalance},
		{"REPORTER_ENABLED", &c.Reporter.Enabled},
		{"METRICS_ENABLED", &c.Metrics.Enabled},
	}
	for _, b := range bools {
		v, ok := lookupEnv(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", envPrefix, b.key, err)
		}
		*b.dst = parsed
	}
	return nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.Port == "" {
		return fmt.Errorf("config: server.port must be set")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("config: server.port %q is not a number", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path must be set")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	c.Log.Parsed = level

	interval, err := parseDurationAllowEmpty(c.Reporter.IntervalRaw)
	if err != nil {
		return fmt.Errorf("config: reporter.interval: %w", err)
	}
	if interval < 0 {
		return fmt.Errorf("config: reporter.interval must be positive, got %s", interval)
	}
	if interval == 0 {
		interval = time.Hour
	}
	c.Reporter.Interval = interval

	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
