// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package auth

import (
	"context"

	"github.com/tomtom215/warbler/internal/models"
)

type contextKey int

const (
	actorKey contextKey = iota
	userKey
	roleKey
)

// ContextWithActor stores the actor and the user record it was resolved to.
func ContextWithActor(ctx context.Context, actor models.Actor, user *models.User) context.Context {
	ctx = context.WithValue(ctx, actorKey, actor)
	return context.WithValue(ctx, userKey, user)
}

// ActorFromContext returns the actor set by Middleware.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(actorKey).(models.Actor)
	return a, ok
}

// UserFromContext returns the actor's user record as of authentication.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// ContextWithRole stores the role claim.
func ContextWithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// RoleFromContext returns the role claim.
func RoleFromContext(ctx context.Context) (string, bool) {
	r, ok := ctx.Value(roleKey).(string)
	return r, ok
}
