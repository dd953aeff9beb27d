package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything pbdash reads at startup.
type Config struct {
	APIURL                string          `mapstructure:"api_url"`
	RequestTimeoutSeconds int             `mapstructure:"request_timeout_seconds"`
	RateLimit             float64         `mapstructure:"rate_limit"`
	Notify                NotifyConfig    `mapstructure:"notify"`
	Dashboard             DashboardConfig `mapstructure:"dashboard"`
	Export                ExportConfig    `mapstructure:"export"`
	Session               SessionConfig   `mapstructure:"session"`
	Log                   LogConfig       `mapstructure:"log"`
}

// NotifyConfig controls flash messages.
type NotifyConfig struct {
	DurationMS int    `mapstructure:"duration_ms"`
	ErrorField string `mapstructure:"error_field"`
}

// DashboardConfig controls the startup dashboard.
type DashboardConfig struct {
	MinIntervalSeconds int      `mapstructure:"min_interval_seconds"`
	Codes              []string `mapstructure:"codes"`
}

// ExportConfig controls CSV exports.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// SessionConfig controls where per-session state lives.
type SessionConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

const (
	envPrefix         = "PBDASH"
	defaultConfigPath = "~/.config/pbdash/config.toml"
	defaultAPIURL     = "http://127.0.0.1:8000"
	defaultLogFile    = "~/.local/share/pbdash/pbdash.log"
	defaultExportDir  = "~/Downloads"
)

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the TOML config at path (or PBDASH_CONFIG, or the default
// location) and applies PBDASH_* environment overrides. A missing file is not
// an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}
	v.SetConfigFile(resolved)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("notify.duration_ms", 3000)
	v.SetDefault("notify.error_field", "message")
	v.SetDefault("dashboard.min_interval_seconds", 21600)
	v.SetDefault("dashboard.codes", []string{})
	v.SetDefault("export.dir", defaultExportDir)
	v.SetDefault("session.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", defaultLogFile)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	c.Notify.ErrorField = strings.ToLower(strings.TrimSpace(c.Notify.ErrorField))
	if c.Notify.ErrorField == "" {
		c.Notify.ErrorField = "message"
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.Export.Dir = mustExpand(orDefault(c.Export.Dir, defaultExportDir))
	c.Log.File = mustExpand(orDefault(c.Log.File, defaultLogFile))
	if dir := strings.TrimSpace(c.Session.Dir); dir != "" {
		c.Session.Dir = mustExpand(dir)
	} else {
		c.Session.Dir = ""
	}

	codes := c.Dashboard.Codes[:0]
	for _, code := range c.Dashboard.Codes {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	c.Dashboard.Codes = codes
}

func (c Config) validate() error {
	switch c.Notify.ErrorField {
	case "message", "errmsg":
	default:
		return fmt.Errorf("validate config: notify.error_field must be message or errmsg, got %q", c.Notify.ErrorField)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("validate config: unknown log.level %q", c.Log.Level)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("validate config: request_timeout_seconds must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("validate config: rate_limit must not be negative")
	}
	if c.Notify.DurationMS < 0 || c.Dashboard.MinIntervalSeconds < 0 {
		return fmt.Errorf("validate config: durations must not be negative")
	}
	return nil
}

// RequestTimeout returns the HTTP timeout for one exchange.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// NotifyDuration returns how long a flash stays visible.
func (c Config) NotifyDuration() time.Duration {
	return time.Duration(c.Notify.DurationMS) * time.Millisecond
}

// DashboardInterval returns the minimum time between dashboard showings.
func (c Config) DashboardInterval() time.Duration {
	return time.Duration(c.Dashboard.MinIntervalSeconds) * time.Second
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
