// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Loading order (see LoadWithKoanf):
//  1. Defaults from defaultConfig
//  2. Optional YAML file (CONFIG_PATH or one of DefaultConfigPaths)
//  3. Environment variables listed in envMappings
//
// Config is immutable after loading and safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Cache     CacheConfig     `koanf:"cache"`
	Backoff   BackoffConfig   `koanf:"backoff"`
	Queue     QueueConfig     `koanf:"queue"`
	Search    SearchConfig    `koanf:"search"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production"
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamConfig describes the music catalog and reporting API being proxied.
//
// Environment Variables:
//   - UPSTREAM_BASE_URL: base URL, no path (required)
//   - UPSTREAM_API_KEY: API key sent on every request (required)
//   - UPSTREAM_API_KEY_HEADER: header carrying the key (default: X-API-Key)
//   - UPSTREAM_CATALOG_PATH / UPSTREAM_REPORT_PATH: endpoint paths
//   - UPSTREAM_TIMEOUT: per-attempt HTTP timeout (default: 30s)
//   - UPSTREAM_RPS / UPSTREAM_BURST: global politeness token bucket
type UpstreamConfig struct {
	BaseURL      string `koanf:"base_url"`
	APIKey       string `koanf:"api_key"`
	APIKeyHeader string `koanf:"api_key_header"`
	CatalogPath  string `koanf:"catalog_path"`
	ReportPath   string `koanf:"report_path"`

	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`

	// MaxReportBytes bounds a downloaded report archive.
	MaxReportBytes int64 `koanf:"max_report_bytes"`

	// BreakerTimeout is how long the circuit stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	// TTL applies to catalog pages.
	TTL time.Duration `koanf:"ttl"`
	// ReportTTL applies to raw report archives and extracted reports.
	ReportTTL time.Duration `koanf:"report_ttl"`
	// Idle removes entries nobody read for this long, regardless of TTL.
	Idle time.Duration `koanf:"idle"`
	// SweepInterval is the period of the background sweeper.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// BackoffConfig holds the per-endpoint adaptive backoff settings.
type BackoffConfig struct {
	Base          time.Duration `koanf:"base"`
	MaxMultiplier int           `koanf:"max_multiplier"`
	MaxRetries    int           `koanf:"max_retries"`
	// NoRetryClasses fail on the first 429 so callers can fall back at once.
	NoRetryClasses []string `koanf:"no_retry_classes"`
}

// ClassConfig holds admission settings for one request class.
type ClassConfig struct {
	Quota       int           `koanf:"quota"`
	Window      time.Duration `koanf:"window"`
	Delay       time.Duration `koanf:"delay"`
	MaxInFlight int           `koanf:"max_in_flight"`
}

// QueueConfig holds request queue settings. Class names match the
// request classes used by the proxy: music, analytics and range.
type QueueConfig struct {
	MaxConcurrent int         `koanf:"max_concurrent"`
	Music         ClassConfig `koanf:"music"`
	Analytics     ClassConfig `koanf:"analytics"`
	Range         ClassConfig `koanf:"range"`
}

// Classes returns the per-class settings keyed by class name.
func (q QueueConfig) Classes() map[string]ClassConfig {
	return map[string]ClassConfig{
		"music":     q.Music,
		"analytics": q.Analytics,
		"range":     q.Range,
	}
}

// SearchConfig holds search accumulator and pagination settings.
type SearchConfig struct {
	// UpstreamPageSize is the bulk page size used while scanning.
	UpstreamPageSize int `koanf:"upstream_page_size"`
	DefaultPageSize  int `koanf:"default_page_size"`
	MaxPageSize      int `koanf:"max_page_size"`
	// MaxPages bounds a scan while the upstream total is unknown.
	MaxPages    int           `koanf:"max_pages"`
	SessionIdle time.Duration `koanf:"session_idle"`
}

// AnalyticsConfig holds analytics endpoint settings.
type AnalyticsConfig struct {
	// SampleFallback serves generated sample data when the upstream is
	// rate limited or has no report for the date.
	SampleFallback bool `koanf:"sample_fallback"`
	MaxRangeDays   int  `koanf:"max_range_days"`
}

// SecurityConfig holds inbound protection settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
