// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// AuditEvent describes an action that changes something owned by another
// user, or a refused attempt to do so.
type AuditEvent struct {
	// Action is e.g. "tweet_delete".
	Action string
	// ActorID is the user performing the action.
	ActorID string
	// Privileged reports whether the actor held the moderation role.
	Privileged bool
	// TargetKind is the record kind acted upon ("tweet", "user").
	TargetKind string
	// TargetID is the record id.
	TargetID string
	// OwnerID is the owner of the target when known.
	OwnerID string
	// Allowed is false for declined attempts.
	Allowed bool
	// Reason explains a decline.
	Reason string
}

// AuditLogger writes moderation and authorization decisions on a dedicated
// component so they can be filtered out of the main stream.
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger returns an audit logger on the global logger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logger: WithComponent("audit")}
}

// NewAuditLoggerWithLogger is used by tests to capture output.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func NewAuditLoggerWithLogger(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With().Str("component", "audit").Logger()}
}

// Record writes one audit event. Request identifiers from ctx are attached.
func (l *AuditLogger) Record(ctx context.Context, ev *AuditEvent) {
	var e *zerolog.Event
	if ev.Allowed {
		e = l.logger.Info().Str("status", "allowed")
	} else {
		e = l.logger.Warn().Str("status", "declined")
	}

	e = e.Str("action", ev.Action).
		Str("actor_id", ev.ActorID).
		Bool("privileged", ev.Privileged).
		Str("target_kind", ev.TargetKind).
		Str("target_id", ev.TargetID)

	if ev.OwnerID != "" {
		e = e.Str("owner_id", ev.OwnerID)
	}
	if ev.Reason != "" {
		e = e.Str("reason", ev.Reason)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		e = e.Str("correlation_id", id)
	}

	e.Msg("audit")
}
