// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

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

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/warbler/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Store: StoreConfig{
			Path:            "/data/warbler",
			SyncWrites:      true,
			CommitTimeout:   5 * time.Second,
			ConflictRetries: 5,
			GCInterval:      10 * time.Minute,
		},
		Sweep: SweepConfig{
			Enabled:             true,
			Interval:            30 * time.Second,
			MaxAttempts:         20,
			BatchSize:           100,
			InlineLimit:         256,
			BookmarkInlineLimit: 1000,
			RatePerSecond:       2000,
		},
		Notify: NotifyConfig{
			Backend:         "gochannel",
			NATSURL:         "nats://127.0.0.1:4222",
			EmbeddedPort:    4222,
			SubjectPrefix:   "warbler",
			PublishTimeout:  2 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
			BreakerInterval: time.Minute,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads defaults, then the config file, then the environment, and
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

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

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as a string.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Store
	"store_path":             "store.path",
	"store_in_memory":        "store.in_memory",
	"store_sync_writes":      "store.sync_writes",
	"store_commit_timeout":   "store.commit_timeout",
	"store_conflict_retries": "store.conflict_retries",
	"store_gc_interval":      "store.gc_interval",

	// Sweep
	"sweep_enabled":               "sweep.enabled",
	"sweep_interval":              "sweep.interval",
	"sweep_max_attempts":          "sweep.max_attempts",
	"sweep_batch_size":            "sweep.batch_size",
	"sweep_inline_limit":          "sweep.inline_limit",
	"sweep_bookmark_inline_limit": "sweep.bookmark_inline_limit",
	"sweep_rate_per_second":       "sweep.rate_per_second",
	"sweep_full_scan_verify":      "sweep.full_scan_verify",

	// Notify
	"notify_backend":          "notify.backend",
	"nats_url":                "notify.nats_url",
	"nats_embedded":           "notify.embedded_server",
	"nats_embedded_port":      "notify.embedded_port",
	"notify_subject_prefix":   "notify.subject_prefix",
	"notify_publish_timeout":  "notify.publish_timeout",
	"notify_breaker_failures": "notify.breaker_failures",
	"notify_breaker_timeout":  "notify.breaker_timeout",
	"notify_breaker_interval": "notify.breaker_interval",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"casbin_policy_path":  "security.policy_path",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its koanf path. Unmapped
// variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
