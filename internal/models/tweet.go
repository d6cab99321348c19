// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package models

import (
	"time"

	"github.com/tomtom215/warbler/internal/idset"
)

// MaxImagesPerTweet caps Tweet.Images.
const MaxImagesPerTweet = 4

// Image describes one uploaded picture attached to a tweet.
type Image struct {
	ID   string `json:"id"`
	Src  string `json:"src" validate:"required,max=500"`
	Alt  string `json:"alt" validate:"max=1000"`
	Type string `json:"type,omitempty"`
}

// Tweet is a post or a reply.
//
// LikerIDs and RetweeterIDs mirror the per-user EngagementIndex; edit them
// through LikeEdge and RetweetEdge only.
type Tweet struct {
	ID                 string    `json:"id"`
	Text               string    `json:"text,omitempty"`
	Images             []Image   `json:"images,omitempty"`
	ParentID           string    `json:"parentId,omitempty"`
	ParentAuthorHandle string    `json:"parentUsername,omitempty"`
	AuthorID           string    `json:"createdBy"`
	LikerIDs           idset.Set `json:"userLikes"`
	RetweeterIDs       idset.Set `json:"userRetweets"`
	ReplyCount         int       `json:"userReplies"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
}

// IsReply reports whether the tweet has a parent.
func (t *Tweet) IsReply() bool { return t.ParentID != "" }

// ImageCount is the number of attached images.
func (t *Tweet) ImageCount() int { return len(t.Images) }

// HasMedia reports whether any image is attached.
func (t *Tweet) HasMedia() bool { return len(t.Images) > 0 }

// RecordKind implements Record.
func (t *Tweet) RecordKind() Kind { return KindTweet }

// RecordID implements Record.
func (t *Tweet) RecordID() string { return t.ID }

// IndexKeys implements Record.
func (t *Tweet) IndexKeys() []string {
	ts := TimeKey(t.CreatedAt)
	keys := []string{IndexKey(IndexTweetAuthor, t.AuthorID, ts, t.ID)}
	if t.IsReply() {
		keys = append(keys, IndexKey(IndexTweetParent, t.ParentID, ts, t.ID))
	} else {
		keys = append(keys,
			IndexKey(IndexTweetRoot, ts, t.ID),
			IndexKey(IndexTweetAuthorRoot, t.AuthorID, ts, t.ID),
		)
	}
	if t.HasMedia() {
		keys = append(keys, IndexKey(IndexTweetAuthorMedia, t.AuthorID, ts, t.ID))
	}
	return keys
}

// TweetView is a tweet with its author attached for rendering. Author is nil
// when the author record no longer resolves.
type TweetView struct {
	*Tweet
	Author *User `json:"user,omitempty"`
}
