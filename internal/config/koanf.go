// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mediatiger/config.yaml",
	"/etc/mediatiger/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute, // range requests wait on the queue
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Upstream: UpstreamConfig{
			BaseURL:           "",
			APIKey:            "",
			APIKeyHeader:      "X-API-Key",
			CatalogPath:       "/api/music/list",
			ReportPath:        "/api/report/daily",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			MaxReportBytes:    64 << 20, // 64MB
			BreakerTimeout:    30 * time.Second,
		},
		Cache: CacheConfig{
			TTL:           5 * time.Minute,
			ReportTTL:     time.Hour,
			Idle:          30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Backoff: BackoffConfig{
			Base:           200 * time.Millisecond,
			MaxMultiplier:  30,
			MaxRetries:     3,
			NoRetryClasses: []string{"analytics"},
		},
		Queue: QueueConfig{
			MaxConcurrent: 4,
			Music: ClassConfig{
				Quota:       60,
				Window:      time.Minute,
				Delay:       500 * time.Millisecond,
				MaxInFlight: 2,
			},
			Analytics: ClassConfig{
				Quota:       30,
				Window:      time.Minute,
				Delay:       500 * time.Millisecond,
				MaxInFlight: 1,
			},
			// Date-range scans are heavier; 3x the lookup delay.
			Range: ClassConfig{
				Quota:       30,
				Window:      time.Minute,
				Delay:       1500 * time.Millisecond,
				MaxInFlight: 1,
			},
		},
		Search: SearchConfig{
			UpstreamPageSize: 100,
			DefaultPageSize:  20,
			MaxPageSize:      100,
			MaxPages:         50,
			SessionIdle:      15 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			SampleFallback: true,
			MaxRangeDays:   31,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
//
// Precedence is ENV > File > Defaults. The result is validated.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"backoff.no_retry_classes",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while YAML already yields slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unlisted variables are ignored so unrelated environment does not leak
// into the configuration.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Upstream
	"upstream_base_url":         "upstream.base_url",
	"upstream_api_key":          "upstream.api_key",
	"upstream_api_key_header":   "upstream.api_key_header",
	"upstream_catalog_path":     "upstream.catalog_path",
	"upstream_report_path":      "upstream.report_path",
	"upstream_timeout":          "upstream.timeout",
	"upstream_rps":              "upstream.requests_per_second",
	"upstream_burst":            "upstream.burst",
	"upstream_max_report_bytes": "upstream.max_report_bytes",
	"upstream_breaker_timeout":  "upstream.breaker_timeout",

	// Cache
	"cache_ttl":            "cache.ttl",
	"cache_report_ttl":     "cache.report_ttl",
	"cache_idle":           "cache.idle",
	"cache_sweep_interval": "cache.sweep_interval",

	// Backoff
	"backoff_base":             "backoff.base",
	"backoff_max_multiplier":   "backoff.max_multiplier",
	"backoff_max_retries":      "backoff.max_retries",
	"backoff_no_retry_classes": "backoff.no_retry_classes",

	// Queue
	"queue_max_concurrent":          "queue.max_concurrent",
	"queue_music_quota":             "queue.music.quota",
	"queue_music_window":            "queue.music.window",
	"queue_music_delay":             "queue.music.delay",
	"queue_music_max_in_flight":     "queue.music.max_in_flight",
	"queue_analytics_quota":         "queue.analytics.quota",
	"queue_analytics_window":        "queue.analytics.window",
	"queue_analytics_delay":         "queue.analytics.delay",
	"queue_analytics_max_in_flight": "queue.analytics.max_in_flight",
	"queue_range_quota":             "queue.range.quota",
	"queue_range_window":            "queue.range.window",
	"queue_range_delay":             "queue.range.delay",
	"queue_range_max_in_flight":     "queue.range.max_in_flight",

	// Search
	"search_upstream_page_size": "search.upstream_page_size",
	"search_default_page_size":  "search.default_page_size",
	"search_max_page_size":      "search.max_page_size",
	"search_max_pages":          "search.max_pages",
	"search_session_idle":       "search.session_idle",

	// Analytics
	"analytics_sample_fallback": "analytics.sample_fallback",
	"analytics_max_range_days":  "analytics.max_range_days",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - UPSTREAM_API_KEY -> upstream.api_key
//   - QUEUE_RANGE_DELAY -> queue.range.delay
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
