// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package models

import (
	"time"

	"github.com/tomtom215/warbler/internal/idset"
)

// EngagementIndex caches which tweets a user has liked and retweeted. It is
// stored under the user's id and must always equal the set of tweets whose
// LikerIDs/RetweeterIDs contain that user.
type EngagementIndex struct {
	UserID            string    `json:"userId"`
	LikedTweetIDs     idset.Set `json:"likes"`
	RetweetedTweetIDs idset.Set `json:"tweets"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
}

// RecordKind implements Record.
func (e *EngagementIndex) RecordKind() Kind { return KindEngagement }

// RecordID implements Record.
func (e *EngagementIndex) RecordID() string { return e.UserID }

// IndexKeys implements Record.
func (e *EngagementIndex) IndexKeys() []string { return nil }

// Forget removes tweetID from both sets and reports whether anything changed.
// Used when the tweet itself is gone and there is no tweet-side set to keep
// in step.
func (e *EngagementIndex) Forget(tweetID string) bool {
	a := e.LikedTweetIDs.Remove(tweetID)
	b := e.RetweetedTweetIDs.Remove(tweetID)
	return a || b
}

// References reports whether either set mentions tweetID.
func (e *EngagementIndex) References(tweetID string) bool {
	return e.LikedTweetIDs.Has(tweetID) || e.RetweetedTweetIDs.Has(tweetID)
}
