// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Sweep    SweepConfig    `koanf:"sweep"`
	Notify   NotifyConfig   `koanf:"notify"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// StoreConfig configures the Badger record store.
type StoreConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`

	// CommitTimeout bounds each write transaction including its commit.
	CommitTimeout time.Duration `koanf:"commit_timeout"`

	// ConflictRetries is how many times an HTTP handler re-runs an
	// operation that lost a write conflict.
	ConflictRetries int `koanf:"conflict_retries"`

	GCInterval time.Duration `koanf:"gc_interval"`
}

// SweepConfig configures engagement cleanup after tweet deletion.
type SweepConfig struct {
	Enabled     bool          `koanf:"enabled"`
	Interval    time.Duration `koanf:"interval"`
	MaxAttempts int           `koanf:"max_attempts"`
	BatchSize   int           `koanf:"batch_size"`

	// InlineLimit is the largest number of engaged users cleaned inside
	// the delete transaction itself.
	InlineLimit int `koanf:"inline_limit"`

	// BookmarkInlineLimit is the largest number of bookmarks purged inside
	// the delete transaction. The rest are purged by the sweep.
	BookmarkInlineLimit int `koanf:"bookmark_inline_limit"`

	RatePerSecond  float64 `koanf:"rate_per_second"`
	FullScanVerify bool    `koanf:"full_scan_verify"`
}

// NotifyConfig configures change notification delivery.
type NotifyConfig struct {
	// Backend is gochannel (in-process) or nats.
	Backend        string        `koanf:"backend"`
	NATSURL        string        `koanf:"nats_url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	EmbeddedPort   int           `koanf:"embedded_port"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`

	BreakerFailures int           `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
	BreakerInterval time.Duration `koanf:"breaker_interval"`
}

// APIConfig holds pagination settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication, CORS and rate limit settings.
type SecurityConfig struct {
	// AuthMode is jwt or none. none trusts the X-Actor-Email header and is
	// refused in production.
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// PolicyPath overrides the embedded casbin policy.
	PolicyPath string `koanf:"policy_path"`
}

// LoggingConfig controls zerolog output.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr is the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
