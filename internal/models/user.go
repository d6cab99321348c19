// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package models

import (
	"strings"
	"time"

	"github.com/tomtom215/warbler/internal/idset"
)

// Profile limits.
const (
	HandleMinLength   = 4
	HandleMaxLength   = 15
	NameMaxLength     = 50
	BioMaxLength      = 160
	WebsiteMaxLength  = 100
	LocationMaxLength = 30
	PhotoURLMaxLength = 500
)

// User is a registered account.
//
// Following and Followers are the two halves of the follow relation and
// must only be edited through FollowEdge.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Handle        string    `json:"username"`
	Email         string    `json:"email"`
	Bio           string    `json:"bio,omitempty"`
	Website       string    `json:"website,omitempty"`
	Location      string    `json:"location,omitempty"`
	PhotoURL      string    `json:"photoURL"`
	CoverPhotoURL string    `json:"coverPhotoURL,omitempty"`
	Verified      bool      `json:"verified"`
	Theme         string    `json:"theme,omitempty"`
	Accent        string    `json:"accent,omitempty"`
	Following     idset.Set `json:"following"`
	Followers     idset.Set `json:"followers"`
	TotalTweets   int       `json:"totalTweets"`
	TotalPhotos   int       `json:"totalPhotos"`
	PinnedTweetID string    `json:"pinnedTweet,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// RecordKind implements Record.
func (u *User) RecordKind() Kind { return KindUser }

// RecordID implements Record.
func (u *User) RecordID() string { return u.ID }

// IndexKeys implements Record.
func (u *User) IndexKeys() []string {
	keys := []string{
		IndexKey(IndexUserCreated, TimeKey(u.CreatedAt), u.ID),
	}
	if u.Handle != "" {
		keys = append(keys, IndexKey(IndexUserHandle, strings.ToLower(u.Handle)))
	}
	if u.Email != "" {
		keys = append(keys, IndexKey(IndexUserEmail, strings.ToLower(u.Email)))
	}
	return keys
}

// Theme and accent choices.
var (
	Themes  = []string{"light", "dim", "dark"}
	Accents = []string{"blue", "yellow", "pink", "purple", "orange", "green"}
)
