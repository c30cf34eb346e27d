// Package config loads and validates gateway configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int      `mapstructure:"port"`
	RequestTimeoutSeconds int      `mapstructure:"request_timeout_seconds"`
	CORSAllowedOrigins    []string `mapstructure:"cors_allowed_origins"`
}

// AuthConfig holds the token signing secret.
type AuthConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// ProbeConfig configures the content-type probe.
type ProbeConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// FetchConfig configures the plain HTTP fetcher used by both strategies.
type FetchConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	UserAgent        string `mapstructure:"user_agent"`
	MaxDocumentBytes int    `mapstructure:"max_document_bytes"`
	MaxPageBytes     int    `mapstructure:"max_page_bytes"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// SECRET_KEY is the name operators already use for the signing secret.
	if err := v.BindEnv("auth.secret_key", "CRAWLER_AUTH_SECRET_KEY", "SECRET_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind secret env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Auth.SecretKey = strings.TrimSpace(cfg.Auth.SecretKey)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	const defaultUA = "crawl-gateway/1.0 (+https://github.com/JakeFAU/crawl-gateway)"
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("auth.secret_key", "")
	v.SetDefault("probe.timeout_seconds", 10)
	v.SetDefault("probe.user_agent", defaultUA)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.user_agent", defaultUA)
	v.SetDefault("fetch.max_document_bytes", 50*1024*1024)
	v.SetDefault("fetch.max_page_bytes", 10*1024*1024)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// ErrMissingSecret is returned by RequireSecret when no signing secret is configured.
var ErrMissingSecret = errors.New("auth.secret_key (or SECRET_KEY) must be set")

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return fmt.Errorf("probe.timeout_seconds must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxDocumentBytes <= 0 {
		return fmt.Errorf("fetch.max_document_bytes must be > 0")
	}
	if c.Fetch.MaxPageBytes <= 0 {
		return fmt.Errorf("fetch.max_page_bytes must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	return nil
}

// RequireSecret fails when the server would start without a signing secret.
// The token command tolerates a missing secret and generates one instead.
func (c Config) RequireSecret() error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return ErrMissingSecret
	}
	return nil
}

// ProbeTimeout is the bounded wait for the content-type probe.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// FetchTimeout is the per-request timeout of the HTTP fetcher.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds a whole inbound request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// NavTimeout bounds one headless navigation.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}
