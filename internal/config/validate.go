// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Rate limit bounds.
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// Validate checks ranges and cross-field rules.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateServer,
		c.validateStore,
		c.validateSweep,
		c.validateNotify,
		c.validateAPI,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	if c.Store.CommitTimeout <= 0 {
		return fmt.Errorf("STORE_COMMIT_TIMEOUT must be positive")
	}
	if c.Store.ConflictRetries < 1 || c.Store.ConflictRetries > 50 {
		return fmt.Errorf("STORE_CONFLICT_RETRIES must be between 1 and 50")
	}
	return nil
}

func (c *Config) validateSweep() error {
	s := c.Sweep
	switch {
	case s.BatchSize < 1:
		return fmt.Errorf("SWEEP_BATCH_SIZE must be at least 1")
	case s.InlineLimit < 0:
		return fmt.Errorf("SWEEP_INLINE_LIMIT cannot be negative")
	case s.BookmarkInlineLimit < 1:
		return fmt.Errorf("SWEEP_BOOKMARK_INLINE_LIMIT must be at least 1")
	case s.MaxAttempts < 1:
		return fmt.Errorf("SWEEP_MAX_ATTEMPTS must be at least 1")
	case s.RatePerSecond < 0:
		return fmt.Errorf("SWEEP_RATE_PER_SECOND cannot be negative")
	case s.Enabled && s.Interval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateNotify() error {
	n := c.Notify
	switch n.Backend {
	case "gochannel":
	case "nats":
		if !n.EmbeddedServer && n.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when NOTIFY_BACKEND=nats without NATS_EMBEDDED")
		}
		if n.EmbeddedServer && (n.EmbeddedPort < 1 || n.EmbeddedPort > 65535) {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("NOTIFY_BACKEND must be one of: gochannel, nats")
	}
	if n.PublishTimeout <= 0 {
		return fmt.Errorf("NOTIFY_PUBLISH_TIMEOUT must be positive")
	}
	if n.BreakerFailures < 1 {
		return fmt.Errorf("NOTIFY_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be between 1 and API_MAX_PAGE_SIZE")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	switch s.AuthMode {
	case "jwt":
		if len(s.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when AUTH_MODE=jwt")
		}
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none")
	}

	if s.AuthMode != "none" && c.IsProduction() && slices.Contains(s.CORSOrigins, "*") {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed in production with authentication enabled")
	}

	if s.RateLimitDisabled {
		return nil
	}
	if s.RateLimitReqs < minRateLimitRequests || s.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if s.RateLimitWindow < minRateLimitWindow || s.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

func (c *Config) validateLogging() error {
	if !slices.Contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", "))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT names a production deployment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// ShouldWarnAboutCORS reports a wildcard origin combined with authentication.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && slices.Contains(c.Security.CORSOrigins, "*")
}
