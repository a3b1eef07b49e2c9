// Package config loads and stores console configuration in the XDG config dir.
// Only non-secret settings are kept here; tokens and the HS index DSN go to the
// OS keychain. Environment variables (optionally from a .env file) override the
// file, and the API base address is read once at startup.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"loxtr/console/internal/manifest"
	"loxtr/console/internal/xdg"
)

// Environment variables recognised by Load.
const (
	EnvAPIURL   = "LOXTR_API_URL"
	EnvLogLevel = "LOXTR_LOG_LEVEL"
	EnvRedisURL = "LOXTR_REDIS_URL"
	EnvIndexDSN = "LOXTR_INDEX_DSN"
	EnvTimeout  = "LOXTR_REQUEST_TIMEOUT"
)

// DefaultAPIURL is used when neither the file nor the environment names a server.
const DefaultAPIURL = "http://localhost:3001/api"

// Config holds non-sensitive console settings.
type Config struct {
	APIBaseURL             string                 `json:"api_base_url"`
	LogLevel               string                 `json:"log_level"`
	RequestTimeoutSeconds  int                    `json:"request_timeout_seconds"`
	RefreshIntervalSeconds int                    `json:"refresh_interval_seconds"`
	Suggest                SuggestConfig          `json:"suggest"`
	Onboarding             OnboardingConfig       `json:"onboarding"`
	Relay                  RelayConfig            `json:"relay"`
	Endpoints              manifest.HTTPEndpoints `json:"endpoints"`

	// IndexDSN is only ever populated from the environment; it is never written.
	IndexDSN string `json:"-"`
}

// SuggestConfig tunes the typeahead pipelines.
type SuggestConfig struct {
	FastDebounceMillis int `json:"fast_debounce_ms"`
	AIDebounceMillis   int `json:"ai_debounce_ms"`
	MinLength          int `json:"min_length"`
}

// OnboardingConfig holds the minimum time each enrichment step stays pending.
type OnboardingConfig struct {
	DefaultMinMillis      int `json:"default_min_ms"`
	ValuePropMinMillis    int `json:"value_prop_min_ms"`
	BuyerProfileMinMillis int `json:"buyer_profile_min_ms"`
	DiscoveryMinMillis    int `json:"discovery_min_ms"`
}

// RelayConfig enables the cross-process credit-consumed relay.
type RelayConfig struct {
	RedisURL string `json:"redis_url"`
	Channel  string `json:"channel"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIBaseURL:             DefaultAPIURL,
		LogLevel:               "warn",
		RequestTimeoutSeconds:  120,
		RefreshIntervalSeconds: 300,
		Suggest: SuggestConfig{
			FastDebounceMillis: 300,
			AIDebounceMillis:   800,
			MinLength:          2,
		},
		Onboarding: OnboardingConfig{
			DefaultMinMillis:      4000,
			ValuePropMinMillis:    5000,
			BuyerProfileMinMillis: 6000,
			DiscoveryMinMillis:    8000,
		},
		Relay:     RelayConfig{Channel: "loxtr:credit-consumed"},
		Endpoints: manifest.DefaultEndpoints(),
	}
}

// RequestTimeout is the fixed per-call deadline of the gateway.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// RefreshInterval is the governor's scheduled refresh period.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// Millis converts a millisecond setting to a Duration.
func Millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// Validate reports settings that would make the console misbehave.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return errors.New("request_timeout_seconds must be positive")
	}
	if c.RefreshIntervalSeconds <= 0 {
		return errors.New("refresh_interval_seconds must be positive")
	}
	if c.Suggest.MinLength < 1 {
		return errors.New("suggest.min_length must be at least 1")
	}
	return nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads .env (if present), the config file and the environment.
// A missing config file yields defaults.
func Load() (Config, error) {
	_ = godotenv.Load()
	p, err := Path()
	if err != nil {
		return Defaults(), err
	}
	return LoadFrom(p)
}

// LoadFrom reads the config file at p and applies environment overrides.
func LoadFrom(p string) (Config, error) {
	c := Defaults()
	data, err := os.ReadFile(p)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return c, err
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	c.Endpoints = c.Endpoints.Merge()
	applyEnv(&c)
	return c, nil
}

func applyEnv(c *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIBaseURL = v
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisURL)); v != "" {
		c.Relay.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexDSN)); v != "" {
		c.IndexDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RequestTimeoutSeconds = n
		}
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
