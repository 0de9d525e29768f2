package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// JHU CSSE global time series CSVs, the default data sources.
const (
	defaultConfirmedURL = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/time_series_covid19_confirmed_global.csv"
	defaultDeathsURL    = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/time_series_covid19_deaths_global.csv"
	defaultRecoveredURL = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series/time_series_covid19_recovered_global.csv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	ConfirmedURL string
	DeathsURL    string
	RecoveredURL string

	FetchTimeout time.Duration
	CacheTTL     time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// RefreshSchedule is an optional cron expression for pre-warming the
	// cache; empty disables scheduled refreshes.
	RefreshSchedule string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", 6*time.Hour)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	// RECOVERED_URL set to the empty string disables the recovered source
	// entirely (degraded mode); unset falls back to the JHU default.
	recoveredURL := defaultRecoveredURL
	if v, ok := os.LookupEnv("RECOVERED_URL"); ok {
		recoveredURL = v
	}

	cfg := &Config{
		ConfirmedURL:    envOrDefault("CONFIRMED_URL", defaultConfirmedURL),
		DeathsURL:       envOrDefault("DEATHS_URL", defaultDeathsURL),
		RecoveredURL:    recoveredURL,
		FetchTimeout:    fetchTimeout,
		CacheTTL:        cacheTTL,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RefreshSchedule: os.Getenv("REFRESH_SCHEDULE"),
	}

	if cfg.ConfirmedURL == "" {
		return nil, errors.New("CONFIRMED_URL is required")
	}
	if cfg.DeathsURL == "" {
		return nil, errors.New("DEATHS_URL is required")
	}
	for _, u := range []string{cfg.ConfirmedURL, cfg.DeathsURL, cfg.RecoveredURL} {
		if u == "" {
			continue
		}
		if _, err := url.ParseRequestURI(u); err != nil {
			return nil, fmt.Errorf("invalid source URL %q: %w", u, err)
		}
	}
	if cfg.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
			return nil, fmt.Errorf("invalid REFRESH_SCHEDULE: %w", err)
		}
	}

	return cfg, nil
}

// SourceURLs maps each category to its configured URL. An empty RECOVERED_URL
// leaves recovered unmapped, which the fetcher reports as a fetch failure and
// the pipeline treats as degraded mode.
func (c *Config) SourceURLs() map[domain.Category]string {
	urls := map[domain.Category]string{
		domain.CategoryConfirmed: c.ConfirmedURL,
		domain.CategoryDeaths:    c.DeathsURL,
	}
	if c.RecoveredURL != "" {
		urls[domain.CategoryRecovered] = c.RecoveredURL
	}
	return urls
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
