// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a record type in the store.
type Kind string

// Record kinds.
const (
	KindUser       Kind = "user"
	KindTweet      Kind = "tweet"
	KindEngagement Kind = "engagement"
	KindBookmark   Kind = "bookmark"
)

// Record is implemented by everything the store persists.
type Record interface {
	RecordKind() Kind
	RecordID() string
	// IndexKeys lists the secondary index entries the record must have.
	IndexKeys() []string
}

// Index names.
const (
	IndexTweetRoot        = "tweet_root"
	IndexTweetParent      = "tweet_parent"
	IndexTweetAuthor      = "tweet_author"
	IndexTweetAuthorRoot  = "tweet_author_root"
	IndexTweetAuthorMedia = "tweet_author_media"
	IndexBookmarkTweet    = "bookmark_tweet"
	IndexBookmarkUser     = "bookmark_user"
	IndexBookmarkPair     = "bookmark_pair"
	IndexUserHandle       = "user_handle"
	IndexUserEmail        = "user_email"
	IndexUserCreated      = "user_created"
)

// IndexKey builds "idx:<name>:<part>:...:<part>". Multi-valued indexes end
// in the record id; unique indexes (handle, email, bookmark pair) do not, so
// a second record claiming the same value collides on the exact key.
func IndexKey(name string, parts ...string) string {
	return "idx:" + name + ":" + strings.Join(parts, ":")
}

// IndexPrefix builds the scan prefix for an index, ending in ':'.
func IndexPrefix(name string, parts ...string) string {
	if len(parts) == 0 {
		return "idx:" + name + ":"
	}
	return IndexKey(name, parts...) + ":"
}

// TimeKey renders t as fixed-width unix nanoseconds so byte order equals
// time order.
func TimeKey(t time.Time) string {
	n := t.UnixNano()
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%020d", n)
}

// ParseTimeKey is the inverse of TimeKey.
func ParseTimeKey(s string) (time.Time, error) {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return time.Time{}, fmt.Errorf("parse time key %q: %w", s, err)
	}
	return time.Unix(0, n).UTC(), nil
}
