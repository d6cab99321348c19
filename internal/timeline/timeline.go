// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package timeline serves read-only tweet listings, newest first, with ties
// on the creation time broken by descending id. Every listing runs in one
// snapshot and never blocks writers.
//
// Ids that no longer resolve (a liked tweet whose sweep has not caught up,
// an author that is gone) are skipped, never reported as errors.
package timeline

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/store"
)

// Query is keyset pagination over (created_at, id), both descending: at most
// Limit tweets ordered after the position (Before, BeforeID). With an empty
// BeforeID every tweet created at Before is excluded too. A zero Before
// starts from the newest tweet.
type Query struct {
	Before   time.Time
	BeforeID string
	Limit    int
}

// cursorSep joins the two halves of a cursor. RFC 3339 never contains it.
const cursorSep = "_"

// WithCursor returns q positioned by a cursor from NextCursor. A bare
// RFC 3339 timestamp is accepted and means "created strictly before".
func (q Query) WithCursor(cursor string) (Query, error) {
	ts, id, _ := strings.Cut(cursor, cursorSep)
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return q, models.NewValidation("before", "before must be a cursor or an RFC 3339 timestamp")
	}
	q.Before, q.BeforeID = t, id
	return q, nil
}

func (q Query) check() error {
	if q.Limit <= 0 {
		return models.NewValidation("limit", "limit must be positive")
	}
	return nil
}

func (q Query) cursor() string {
	if q.Before.IsZero() {
		return ""
	}
	if q.BeforeID != "" {
		return models.TimeKey(q.Before) + ":" + q.BeforeID
	}
	return models.TimeKey(q.Before)
}

// admits reports whether t sorts after the query position.
func (q Query) admits(t *models.Tweet) bool {
	switch {
	case q.Before.IsZero() || t.CreatedAt.Before(q.Before):
		return true
	case t.CreatedAt.Equal(q.Before):
		return q.BeforeID != "" && t.ID < q.BeforeID
	default:
		return false
	}
}

// Engine runs timeline queries.
type Engine struct {
	store *store.Store
}

// New creates an Engine.
func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Global lists tweets that are not replies.
func (e *Engine) Global(ctx context.Context, q Query) ([]*models.TweetView, error) {
	return e.byIndex(ctx, "timeline_global", "", models.IndexPrefix(models.IndexTweetRoot), q)
}

// Replies lists direct replies to tweetID. A parent that no longer exists
// can still have replies.
func (e *Engine) Replies(ctx context.Context, tweetID string, q Query) ([]*models.TweetView, error) {
	return e.byIndex(ctx, "timeline_replies", "", models.IndexPrefix(models.IndexTweetParent, tweetID), q)
}

// UserTweets lists userID's tweets, with or without replies.
func (e *Engine) UserTweets(ctx context.Context, userID string, includeReplies bool, q Query) ([]*models.TweetView, error) {
	index := models.IndexTweetAuthorRoot
	if includeReplies {
		index = models.IndexTweetAuthor
	}
	return e.byIndex(ctx, "timeline_user", userID, models.IndexPrefix(index, userID), q)
}

// UserMedia lists userID's tweets that carry images.
func (e *Engine) UserMedia(ctx context.Context, userID string, q Query) ([]*models.TweetView, error) {
	return e.byIndex(ctx, "timeline_media", userID, models.IndexPrefix(models.IndexTweetAuthorMedia, userID), q)
}

// UserLikes lists the tweets in userID's engagement index. It reads the
// index only and never scans tweets for the user's likes.
func (e *Engine) UserLikes(ctx context.Context, userID string, q Query) (out []*models.TweetView, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("timeline_likes", start, err) }()

	if err := q.check(); err != nil {
		return nil, err
	}

	err = e.store.View(ctx, func(tx *store.Tx) error {
		var ix models.EngagementIndex
		if err := tx.Get(models.KindEngagement, userID, &ix); err != nil {
			return err
		}

		var tweets []*models.Tweet
		for _, id := range ix.LikedTweetIDs.IDs() {
			t, err := getTweet(tx, id)
			if err != nil {
				return err
			}
			if t == nil {
				continue
			}
			if !q.admits(t) {
				continue
			}
			tweets = append(tweets, t)
		}

		sortNewestFirst(tweets)
		if len(tweets) > q.Limit {
			tweets = tweets[:q.Limit]
		}
		out, err = attachAuthors(tx, tweets)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) byIndex(ctx context.Context, op, userID, prefix string, q Query) (out []*models.TweetView, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation(op, start, err) }()

	if err := q.check(); err != nil {
		return nil, err
	}

	err = e.store.View(ctx, func(tx *store.Tx) error {
		if userID != "" {
			ok, err := tx.Exists(models.KindUser, userID)
			if err != nil {
				return err
			}
			if !ok {
				return models.NewNotFound(models.KindUser, userID)
			}
		}

		ids, err := tx.IndexIDs(store.IndexQuery{
			Prefix:  prefix,
			Before:  q.cursor(),
			Limit:   q.Limit,
			Reverse: true,
		})
		if err != nil {
			return err
		}

		tweets := make([]*models.Tweet, 0, len(ids))
		for _, id := range ids {
			t, err := getTweet(tx, id)
			if err != nil {
				return err
			}
			if t != nil {
				tweets = append(tweets, t)
			}
		}
		out, err = attachAuthors(tx, tweets)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// getTweet returns nil for an id that does not resolve.
func getTweet(tx *store.Tx, id string) (*models.Tweet, error) {
	var t models.Tweet
	err := tx.Get(models.KindTweet, id, &t)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func attachAuthors(tx *store.Tx, tweets []*models.Tweet) ([]*models.TweetView, error) {
	authors := make(map[string]*models.User)
	out := make([]*models.TweetView, 0, len(tweets))
	for _, t := range tweets {
		u, seen := authors[t.AuthorID]
		if !seen {
			var user models.User
			err := tx.Get(models.KindUser, t.AuthorID, &user)
			switch {
			case err == nil:
				u = &user
			case !errors.Is(err, models.ErrNotFound):
				return nil, err
			}
			authors[t.AuthorID] = u
		}
		out = append(out, &models.TweetView{Tweet: t, Author: u})
	}
	return out, nil
}

func sortNewestFirst(tweets []*models.Tweet) {
	sort.Slice(tweets, func(i, j int) bool {
		a, b := tweets[i], tweets[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// NextCursor returns the cursor for the page after page, or "" when page is
// empty.
func NextCursor(page []*models.TweetView) string {
	if len(page) == 0 {
		return ""
	}
	last := page[len(page)-1]
	return last.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSep + last.ID
}
