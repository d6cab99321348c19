// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package models

// Roles known to the authorization policy.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Tweet text limits in code points.
const (
	TextLimitStandard   = 280
	TextLimitPrivileged = 560
)

// Actor is the user performing an operation. Privileged is decided once
// when the request is authenticated.
type Actor struct {
	ID         string
	Privileged bool
}

// TextLimit returns the maximum tweet length for the actor.
func (a Actor) TextLimit() int {
	if a.Privileged {
		return TextLimitPrivileged
	}
	return TextLimitStandard
}
