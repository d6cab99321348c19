// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/rs/zerolog"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects and actions used by the API.
const (
	ObjectTweet = "tweet"
	ObjectSweep = "sweep"

	ActionModerate = "moderate"
	ActionManage   = "manage"
)

// DefaultRole applies when a token carries no role.
const DefaultRole = "user"

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// ModelPath overrides the embedded model when the file exists.
	ModelPath string

	// PolicyPath overrides the embedded policy when the file exists.
	PolicyPath string

	// CacheTTL is how long decisions are cached; 0 disables the cache.
	CacheTTL time.Duration
}

// DefaultEnforcerConfig returns the embedded model and policy with a
// five minute decision cache.
func DefaultEnforcerConfig() EnforcerConfig {
	return EnforcerConfig{CacheTTL: 5 * time.Minute}
}

// Enforcer wraps a synced Casbin enforcer with a decision cache.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
	log      zerolog.Logger
}

// NewEnforcer loads the model and policy.
func NewEnforcer(cfg EnforcerConfig) (*Enforcer, error) {
	var m model.Model
	var err error
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	source := "embedded"
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
		source = cfg.PolicyPath
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicyText(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{
		enforcer: enforcer,
		log:      logging.WithComponent("authz"),
	}
	if cfg.CacheTTL > 0 {
		e.cache = newDecisionCache(cfg.CacheTTL)
	}
	e.log.Info().Str("policy", source).Msg("Authorization policy loaded")
	return e, nil
}

// loadPolicyText adds "p" and "g" lines from CSV text. Blank lines and
// comments are skipped.
func loadPolicyText(enforcer *casbin.SyncedEnforcer, text string) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) >= 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) >= 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	if role == "" {
		role = DefaultRole
	}
	if e.cache != nil {
		if allowed, ok := e.cache.get(role, object, action); ok {
			return allowed, nil
		}
	}

	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		metrics.AuthzDecisions.WithLabelValues("error").Inc()
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	if allowed {
		metrics.AuthzDecisions.WithLabelValues("allow").Inc()
	} else {
		metrics.AuthzDecisions.WithLabelValues("deny").Inc()
	}

	if e.cache != nil {
		e.cache.set(role, object, action, allowed)
	}
	return allowed, nil
}

// Privileged reports whether role holds the moderation capability. An
// enforcement error denies.
func (e *Enforcer) Privileged(role string) bool {
	ok, err := e.Enforce(role, ObjectTweet, ActionModerate)
	if err != nil {
		e.log.Error().Err(err).Str("role", role).Msg("Privilege check failed")
		return false
	}
	return ok
}

// Allowed is Enforce with errors logged and treated as deny.
func (e *Enforcer) Allowed(role, object, action string) bool {
	ok, err := e.Enforce(role, object, action)
	if err != nil {
		e.log.Error().Err(err).Str("role", role).Str("object", object).Str("action", action).Msg("Authorization check failed")
		return false
	}
	return ok
}

// RolesFor returns the roles role inherits from, excluding itself.
func (e *Enforcer) RolesFor(role string) ([]string, error) {
	return e.enforcer.GetImplicitRolesForUser(role)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
