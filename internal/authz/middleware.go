// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package authz

import (
	"net/http"

	"github.com/tomtom215/warbler/internal/auth"
)

// DenyFunc writes the response for a refused request.
type DenyFunc func(w http.ResponseWriter, r *http.Request)

// Middleware guards routes by role permission.
type Middleware struct {
	enforcer *Enforcer
	deny     DenyFunc
}

// NewMiddleware creates a new authorization middleware. A nil deny writes
// a plain 403.
func NewMiddleware(enforcer *Enforcer, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		}
	}
	return &Middleware{enforcer: enforcer, deny: deny}
}

// Require lets a request through only when the authenticated role may
// perform action on object. It must run after auth.Middleware.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := auth.RoleFromContext(r.Context())
			if !ok || !m.enforcer.Allowed(role, object, action) {
				m.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
