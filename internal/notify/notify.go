// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package notify is the change notifier bridge. Engine packages hand it a
// committed fact after their transaction commits; it fans the fact out to
// sinks (a watermill transport, the websocket hub) without ever reporting
// failure back to the caller or blocking it beyond a bounded attempt.
package notify

import (
	"context"
	"sync"
	"time"
)

// Event names.
type Event string

const (
	EventFollowersChanged Event = "FollowersChanged"
	EventUserUpdated      Event = "UserUpdated"
	EventTweetLiked       Event = "TweetLiked"
	EventTweetRetweeted   Event = "TweetRetweeted"
	EventReplyAdded       Event = "ReplyAdded"
	EventTweetDeleted     Event = "TweetDeleted"
	EventBookmarkAdded    Event = "BookmarkAdded"
	EventBookmarkRemoved  Event = "BookmarkRemoved"
	EventBookmarksCleared Event = "BookmarksCleared"
)

// Topic prefixes. Subscribers join topics such as "tweet_<id>".
const (
	UserTopicPrefix      = "user_"
	TweetTopicPrefix     = "tweet_"
	BookmarksTopicPrefix = "bookmarks_"
)

// UserTopic is the topic for changes to a user.
func UserTopic(userID string) string { return UserTopicPrefix + userID }

// TweetTopic is the topic for changes to a tweet.
func TweetTopic(tweetID string) string { return TweetTopicPrefix + tweetID }

// BookmarksTopic is the topic for a user's bookmark list.
func BookmarksTopic(userID string) string { return BookmarksTopicPrefix + userID }

// Notification is one committed fact.
type Notification struct {
	Topic   string    `json:"topic"`
	Event   Event     `json:"event"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Payloads.
type (
	FollowersChanged struct {
		UserID        string `json:"userId"`
		FollowerCount int    `json:"followerCount"`
	}

	TweetLiked struct {
		TweetID   string `json:"tweetId"`
		LikeCount int    `json:"likeCount"`
	}

	TweetRetweeted struct {
		TweetID      string `json:"tweetId"`
		RetweetCount int    `json:"retweetCount"`
	}

	ReplyAdded struct {
		TweetID    string `json:"tweetId"`
		ReplyID    string `json:"replyId"`
		ReplyCount int    `json:"replyCount"`
	}

	TweetDeleted struct {
		TweetID string `json:"tweetId"`
	}

	BookmarkChanged struct {
		TweetID string `json:"tweetId,omitempty"`
		Count   int    `json:"count,omitempty"`
	}
)

// Publisher is what engine packages depend on. Publish must not block for
// long and has no failure result.
type Publisher interface {
	Publish(ctx context.Context, n Notification)
}

type discard struct{}

func (discard) Publish(context.Context, Notification) {}

// Discard drops every notification.
var Discard Publisher = discard{}

// Recorder keeps notifications in memory. Tests use it to observe what an
// operation announced.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// Notifications returns a copy of everything published so far.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// Reset forgets recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// Last returns the most recent notification for event, if any.
func (r *Recorder) Last(event Event) (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].Event == event {
			return r.sent[i], true
		}
	}
	return Notification{}, false
}
