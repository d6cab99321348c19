// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package engagement records likes and retweets. Every edit touches the
// tweet's engager set and the user's EngagementIndex in one transaction, so
// no reader sees one side without the other.
package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/warbler/internal/idset"
	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
)

// Kind selects likes or retweets.
type Kind int

const (
	Like Kind = iota
	Retweet
)

func (k Kind) String() string {
	if k == Retweet {
		return "retweet"
	}
	return "like"
}

// Result is the state of the edge after an operation.
type Result struct {
	TweetID string `json:"tweetId"`
	Active  bool   `json:"active"`
	Count   int    `json:"count"`
	Changed bool   `json:"-"`
}

// Ledger edits engagement edges.
type Ledger struct {
	store    *store.Store
	notifier notify.Publisher
}

// New creates a Ledger. A nil notifier discards notifications.
func New(s *store.Store, n notify.Publisher) *Ledger {
	if n == nil {
		n = notify.Discard
	}
	return &Ledger{store: s, notifier: n}
}

// Like adds userID to the tweet's likers.
func (l *Ledger) Like(ctx context.Context, userID, tweetID string) (Result, error) {
	return l.Set(ctx, Like, userID, tweetID, true)
}

// Unlike removes userID from the tweet's likers.
func (l *Ledger) Unlike(ctx context.Context, userID, tweetID string) (Result, error) {
	return l.Set(ctx, Like, userID, tweetID, false)
}

// Retweet adds userID to the tweet's retweeters.
func (l *Ledger) Retweet(ctx context.Context, userID, tweetID string) (Result, error) {
	return l.Set(ctx, Retweet, userID, tweetID, true)
}

// Unretweet removes userID from the tweet's retweeters.
func (l *Ledger) Unretweet(ctx context.Context, userID, tweetID string) (Result, error) {
	return l.Set(ctx, Retweet, userID, tweetID, false)
}

// Set makes the edge userID -> tweetID of kind present or absent. It is
// idempotent; Result.Changed reports whether anything was written.
func (l *Ledger) Set(ctx context.Context, kind Kind, userID, tweetID string, active bool) (res Result, err error) {
	op := kind.String()
	if !active {
		op = "un" + op
	}
	start := time.Now()
	defer func() { metrics.RecordOperation(op, start, err) }()

	res = Result{TweetID: tweetID, Active: active}
	err = l.store.Update(ctx, func(tx *store.Tx) error {
		var t models.Tweet
		if err := tx.Get(models.KindTweet, tweetID, &t); err != nil {
			return err
		}
		var ix models.EngagementIndex
		if err := tx.Get(models.KindEngagement, userID, &ix); err != nil {
			return err
		}

		edge := models.LikeEdge(&ix, &t)
		engagers := &t.LikerIDs
		if kind == Retweet {
			edge = models.RetweetEdge(&ix, &t)
			engagers = &t.RetweeterIDs
		}

		if active {
			res.Changed = idset.Link(edge)
		} else {
			res.Changed = idset.Unlink(edge)
		}
		res.Count = engagers.Len()
		if !res.Changed {
			return nil
		}

		now := time.Now().UTC()
		t.UpdatedAt = now
		ix.UpdatedAt = now
		if err := tx.Put(&t); err != nil {
			return err
		}
		return tx.Put(&ix)
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", op, tweetID, err)
	}

	if res.Changed {
		logging.Ctx(ctx).Debug().
			Str("component", "engagement").
			Str("op", op).
			Str("tweet_id", tweetID).
			Int("count", res.Count).
			Msg("Engagement changed")
		l.notifier.Publish(ctx, notification(kind, tweetID, res.Count))
	}
	return res, nil
}

func notification(kind Kind, tweetID string, count int) notify.Notification {
	n := notify.Notification{Topic: notify.TweetTopic(tweetID)}
	if kind == Retweet {
		n.Event = notify.EventTweetRetweeted
		n.Payload = notify.TweetRetweeted{TweetID: tweetID, RetweetCount: count}
	} else {
		n.Event = notify.EventTweetLiked
		n.Payload = notify.TweetLiked{TweetID: tweetID, LikeCount: count}
	}
	return n
}
