// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateUpstream,
		c.validateCache,
		c.validateBackoff,
		c.validateQueue,
		c.validateSearch,
		c.validateAnalytics,
		c.validateRateLimits,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("READ_TIMEOUT and WRITE_TIMEOUT must be positive")
	}
	return nil
}

// validateUpstream validates the proxied API settings
func (c *Config) validateUpstream() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if err := validateHTTPURL(c.Upstream.BaseURL, "UPSTREAM_BASE_URL"); err != nil {
		return err
	}
	if c.Upstream.APIKey == "" {
		return fmt.Errorf("UPSTREAM_API_KEY is required")
	}
	if containsPlaceholder(c.Upstream.APIKey) {
		return fmt.Errorf("UPSTREAM_API_KEY contains a placeholder value; set the real key")
	}
	if !strings.HasPrefix(c.Upstream.CatalogPath, "/") || !strings.HasPrefix(c.Upstream.ReportPath, "/") {
		return fmt.Errorf("UPSTREAM_CATALOG_PATH and UPSTREAM_REPORT_PATH must start with /")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.Upstream.RequestsPerSecond < 0 || c.Upstream.Burst < 0 {
		return fmt.Errorf("UPSTREAM_RPS and UPSTREAM_BURST must not be negative")
	}
	return nil
}

// validateCache validates cache configuration
func (c *Config) validateCache() error {
	if c.Cache.TTL <= 0 || c.Cache.ReportTTL <= 0 {
		return fmt.Errorf("CACHE_TTL and CACHE_REPORT_TTL must be positive")
	}
	if c.Cache.Idle < 0 {
		return fmt.Errorf("CACHE_IDLE must not be negative")
	}
	if c.Cache.SweepInterval < time.Second {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be at least 1s")
	}
	return nil
}

// validateBackoff validates adaptive backoff configuration
func (c *Config) validateBackoff() error {
	if c.Backoff.Base <= 0 {
		return fmt.Errorf("BACKOFF_BASE must be positive")
	}
	if c.Backoff.MaxMultiplier < 1 {
		return fmt.Errorf("BACKOFF_MAX_MULTIPLIER must be at least 1")
	}
	if c.Backoff.MaxRetries < 0 || c.Backoff.MaxRetries > 10 {
		return fmt.Errorf("BACKOFF_MAX_RETRIES must be between 0 and 10")
	}
	for _, class := range c.Backoff.NoRetryClasses {
		if !validClasses[class] {
			return fmt.Errorf("BACKOFF_NO_RETRY_CLASSES contains unknown class %q", class)
		}
	}
	return nil
}

var validClasses = map[string]bool{
	"music":     true,
	"analytics": true,
	"range":     true,
}

// validateQueue validates request queue configuration
func (c *Config) validateQueue() error {
	if c.Queue.MaxConcurrent < 1 {
		return fmt.Errorf("QUEUE_MAX_CONCURRENT must be at least 1")
	}
	for name, class := range c.Queue.Classes() {
		if class.Quota < 0 {
			return fmt.Errorf("queue class %s: quota must not be negative", name)
		}
		if class.Quota > 0 && class.Window <= 0 {
			return fmt.Errorf("queue class %s: window is required when a quota is set", name)
		}
		if class.Delay < 0 || class.MaxInFlight < 0 {
			return fmt.Errorf("queue class %s: delay and max_in_flight must not be negative", name)
		}
	}
	return nil
}

// validateSearch validates pagination and accumulator configuration
func (c *Config) validateSearch() error {
	s := c.Search
	if s.UpstreamPageSize < 1 {
		return fmt.Errorf("SEARCH_UPSTREAM_PAGE_SIZE must be at least 1")
	}
	if s.DefaultPageSize < 1 || s.MaxPageSize < s.DefaultPageSize {
		return fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE must be between 1 and SEARCH_MAX_PAGE_SIZE")
	}
	if s.MaxPages < 1 {
		return fmt.Errorf("SEARCH_MAX_PAGES must be at least 1")
	}
	if s.SessionIdle <= 0 {
		return fmt.Errorf("SEARCH_SESSION_IDLE must be positive")
	}
	return nil
}

// validateAnalytics validates analytics configuration
func (c *Config) validateAnalytics() error {
	if c.Analytics.MaxRangeDays < 1 || c.Analytics.MaxRangeDays > 366 {
		return fmt.Errorf("ANALYTICS_MAX_RANGE_DAYS must be between 1 and 366")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates inbound rate limiting bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// ShouldWarnAboutCORS returns true in production with wildcard origins.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.IsProduction() {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, disabled")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns indicate the operator forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_API_KEY",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
