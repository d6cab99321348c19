// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package auth

import (
	"context"
	"net/http"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/users"
)

// Registrar resolves an identity to a user, creating it on first sight.
type Registrar interface {
	Register(ctx context.Context, id users.Identity) (*models.User, bool, error)
}

// RoleDecider answers whether a role is privileged.
type RoleDecider interface {
	Privileged(role string) bool
}

// ErrorFunc writes the response for a failed authentication. err wraps
// ErrNoCredentials, ErrInvalidCredentials, ErrExpiredCredentials or a
// registration error.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests and stores the actor in the context.
type Middleware struct {
	authn     Authenticator
	registrar Registrar
	roles     RoleDecider
	onError   ErrorFunc
}

// NewMiddleware creates the middleware. A nil onError writes a plain 401.
func NewMiddleware(authn Authenticator, registrar Registrar, roles RoleDecider, onError ErrorFunc) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}
	}
	return &Middleware{authn: authn, registrar: registrar, roles: roles, onError: onError}
}

// Authenticate requires a valid identity on every request it wraps.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authn.Authenticate(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("authenticator", m.authn.Name()).Msg("Authentication failed")
			m.onError(w, r, err)
			return
		}

		user, created, err := m.registrar.Register(r.Context(), users.Identity{
			Email:    claims.Email,
			Name:     claims.Name,
			PhotoURL: claims.Picture,
		})
		if err != nil {
			m.onError(w, r, err)
			return
		}
		if created {
			logging.Ctx(r.Context()).Info().Str("user_id", user.ID).Str("username", user.Handle).Msg("First login registered user")
		}

		role := claims.Role
		if role == "" {
			role = models.RoleUser
		}
		actor := models.Actor{ID: user.ID, Privileged: m.roles != nil && m.roles.Privileged(role)}

		ctx := ContextWithRole(r.Context(), role)
		ctx = ContextWithActor(ctx, actor, user)
		ctx = logging.ContextWithActorID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
