// Package config reads the relay's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultModel           = "gpt-3.5-turbo"
	defaultBaseURL         = "https://api.openai.com/v1"
	defaultUpstreamTimeout = 30 * time.Second
	defaultMaxMessageLen   = 4000
	defaultListenAddr      = ":8080"
	defaultRateLimitBurst  = 10
)

type Config struct {
	APIKey          string
	APIKeyParam     string
	Model           string
	BaseURL         string
	UpstreamTimeout time.Duration
	MaxMessageLen   int

	ListenAddr        string
	RateLimitRPS      float64
	RateLimitBurst    int
	TrustProxyHeaders bool
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads settings through getenv. Malformed numbers are errors
// rather than silently falling back, so a typo does not go unnoticed.
func LoadFrom(getenv func(string) string) (Config, error) {
	c := Config{
		APIKey:      strings.TrimSpace(getenv("OPENAI_API_KEY")),
		APIKeyParam: strings.TrimSpace(getenv("OPENAI_API_KEY_PARAM")),
		Model:       envString(getenv, "OPENAI_MODEL", defaultModel),
		BaseURL:     envString(getenv, "OPENAI_BASE_URL", defaultBaseURL),
		ListenAddr:  envString(getenv, "LISTEN_ADDR", defaultListenAddr),
	}
	if c.APIKey == "" && c.APIKeyParam == "" {
		return Config{}, errors.New("config: one of OPENAI_API_KEY or OPENAI_API_KEY_PARAM must be set")
	}

	var err error
	if c.UpstreamTimeout, err = envDuration(getenv, "UPSTREAM_TIMEOUT", defaultUpstreamTimeout); err != nil {
		return Config{}, err
	}
	if c.MaxMessageLen, err = envInt(getenv, "MAX_MESSAGE_LENGTH", defaultMaxMessageLen); err != nil {
		return Config{}, err
	}
	if c.RateLimitBurst, err = envInt(getenv, "RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return Config{}, err
	}
	if v := strings.TrimSpace(getenv("RATE_LIMIT_RPS")); v != "" {
		if c.RateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return Config{}, fmt.Errorf("config: RATE_LIMIT_RPS: %w", err)
		}
	}
	if v := strings.TrimSpace(getenv("TRUST_PROXY_HEADERS")); v != "" {
		if c.TrustProxyHeaders, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("config: TRUST_PROXY_HEADERS: %w", err)
		}
	}
	return c, nil
}

func envString(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
