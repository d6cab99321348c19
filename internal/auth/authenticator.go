// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package auth

import (
	"errors"
	"net/http"
	"strings"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeJWT uses bearer tokens.
	AuthModeJWT AuthMode = "jwt"

	// AuthModeNone trusts identity headers. Development only.
	AuthModeNone AuthMode = "none"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "jwt", "":
		return AuthModeJWT, nil
	case "none":
		return AuthModeNone, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

func (m AuthMode) String() string {
	return string(m)
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpiredCredentials indicates credentials have expired.
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Identity headers read in AuthModeNone.
const (
	HeaderActorEmail = "X-Actor-Email"
	HeaderActorName  = "X-Actor-Name"
	HeaderActorRole  = "X-Actor-Role"
)

// Authenticator extracts identity claims from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*Claims, error)
	Name() string
}

// BearerAuthenticator reads "Authorization: Bearer <jwt>". Browsers cannot
// set headers on a websocket handshake, so the access_token query
// parameter is accepted too.
type BearerAuthenticator struct {
	verifier *JWTVerifier
}

// NewBearerAuthenticator wraps verifier.
func NewBearerAuthenticator(verifier *JWTVerifier) *BearerAuthenticator {
	return &BearerAuthenticator{verifier: verifier}
}

// Authenticate implements Authenticator.
func (a *BearerAuthenticator) Authenticate(r *http.Request) (*Claims, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, ErrNoCredentials
	}
	return a.verifier.Verify(token)
}

func (a *BearerAuthenticator) Name() string { return "jwt" }

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

// HeaderAuthenticator trusts identity headers.
type HeaderAuthenticator struct{}

// Authenticate implements Authenticator.
func (HeaderAuthenticator) Authenticate(r *http.Request) (*Claims, error) {
	email := strings.TrimSpace(r.Header.Get(HeaderActorEmail))
	if email == "" {
		email = r.URL.Query().Get("actor_email")
	}
	if email == "" {
		return nil, ErrNoCredentials
	}
	return &Claims{
		Email: email,
		Name:  r.Header.Get(HeaderActorName),
		Role:  r.Header.Get(HeaderActorRole),
	}, nil
}

func (HeaderAuthenticator) Name() string { return "none" }

// NewAuthenticator returns the authenticator for mode.
func NewAuthenticator(mode AuthMode, secret string) (Authenticator, error) {
	switch mode {
	case AuthModeNone:
		return HeaderAuthenticator{}, nil
	case AuthModeJWT:
		v, err := NewJWTVerifier(secret)
		if err != nil {
			return nil, err
		}
		return NewBearerAuthenticator(v), nil
	default:
		return nil, errors.New("unsupported auth mode: " + string(mode))
	}
}
