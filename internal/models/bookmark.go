// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package models

import "time"

// Bookmark saves a tweet for a user. At most one per (UserID, TweetID).
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TweetID   string    `json:"tweetId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordKind implements Record.
func (b *Bookmark) RecordKind() Kind { return KindBookmark }

// RecordID implements Record.
func (b *Bookmark) RecordID() string { return b.ID }

// IndexKeys implements Record.
func (b *Bookmark) IndexKeys() []string {
	return []string{
		IndexKey(IndexBookmarkTweet, b.TweetID, b.ID),
		IndexKey(IndexBookmarkUser, b.UserID, TimeKey(b.CreatedAt), b.ID),
		IndexKey(IndexBookmarkPair, b.UserID, b.TweetID),
	}
}

// BookmarkView attaches the bookmarked tweet. Tweet is nil when it no
// longer resolves.
type BookmarkView struct {
	*Bookmark
	Tweet *TweetView `json:"tweet,omitempty"`
}
