// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package auth resolves the acting user of an HTTP request.
//
// Tokens are issued by an external identity provider and verified here with
// a shared HS256 secret. The email, name and picture claims identify the
// person; the first request from a new email registers a user. The role
// claim is handed to a RoleDecider (internal/authz) once per request and the
// answer is carried on models.Actor.
//
// AuthModeNone trusts X-Actor-Email and is for local development only;
// configuration refuses it in production.
package auth
