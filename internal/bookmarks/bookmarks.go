// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package bookmarks stores the tweets a user saved. Tweet deletion purges
// bookmarks in its own transaction; this package only handles the user side.
package bookmarks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
)

// Service manages bookmarks.
type Service struct {
	store    *store.Store
	notifier notify.Publisher
}

// New creates a Service. A nil notifier discards notifications.
func New(s *store.Store, n notify.Publisher) *Service {
	if n == nil {
		n = notify.Discard
	}
	return &Service{store: s, notifier: n}
}

// List returns userID's bookmarks newest first with their tweets attached.
// Bookmarks whose tweet no longer resolves are left out. limit <= 0 means
// no cap.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*models.BookmarkView, error) {
	var out []*models.BookmarkView
	err := s.store.View(ctx, func(tx *store.Tx) error {
		ids, err := tx.IndexIDs(store.IndexQuery{
			Prefix:  models.IndexPrefix(models.IndexBookmarkUser, userID),
			Reverse: true,
		})
		if err != nil {
			return err
		}
		authors := make(map[string]*models.User)
		for _, id := range ids {
			var b models.Bookmark
			if err := tx.Get(models.KindBookmark, id, &b); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return err
			}
			var t models.Tweet
			if err := tx.Get(models.KindTweet, b.TweetID, &t); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return err
			}
			author, ok := authors[t.AuthorID]
			if !ok {
				var u models.User
				if err := tx.Get(models.KindUser, t.AuthorID, &u); err == nil {
					author = &u
				} else if !errors.Is(err, models.ErrNotFound) {
					return err
				}
				authors[t.AuthorID] = author
			}
			out = append(out, &models.BookmarkView{
				Bookmark: &b,
				Tweet:    &models.TweetView{Tweet: &t, Author: author},
			})
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Add bookmarks tweetID for userID. A repeat returns the existing bookmark
// with created false.
func (s *Service) Add(ctx context.Context, userID, tweetID string) (b *models.Bookmark, created bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("bookmark_add", start, err) }()

	err = s.store.Update(ctx, func(tx *store.Tx) error {
		if ok, err := tx.Exists(models.KindUser, userID); err != nil {
			return err
		} else if !ok {
			return models.NewNotFound(models.KindUser, userID)
		}
		if ok, err := tx.Exists(models.KindTweet, tweetID); err != nil {
			return err
		} else if !ok {
			return models.NewNotFound(models.KindTweet, tweetID)
		}

		id, err := tx.Lookup(models.IndexKey(models.IndexBookmarkPair, userID, tweetID))
		switch {
		case err == nil:
			var existing models.Bookmark
			if err := tx.Get(models.KindBookmark, id, &existing); err != nil {
				return err
			}
			b = &existing
			return nil
		case !errors.Is(err, models.ErrNotFound):
			return err
		}

		b = &models.Bookmark{
			ID:        uuid.NewString(),
			UserID:    userID,
			TweetID:   tweetID,
			CreatedAt: time.Now().UTC(),
		}
		created = true
		return tx.Put(b)
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.publish(ctx, userID, notify.EventBookmarkAdded, notify.BookmarkChanged{TweetID: tweetID})
	}
	return b, created, nil
}

// Remove deletes userID's bookmark of tweetID if there is one.
func (s *Service) Remove(ctx context.Context, userID, tweetID string) (removed bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("bookmark_remove", start, err) }()

	err = s.store.Update(ctx, func(tx *store.Tx) error {
		id, err := tx.Lookup(models.IndexKey(models.IndexBookmarkPair, userID, tweetID))
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(models.KindBookmark, id); err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		s.publish(ctx, userID, notify.EventBookmarkRemoved, notify.BookmarkChanged{TweetID: tweetID})
	}
	return removed, nil
}

// Clear removes all of userID's bookmarks and returns how many there were.
func (s *Service) Clear(ctx context.Context, userID string) (n int, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("bookmark_clear", start, err) }()

	err = s.store.Update(ctx, func(tx *store.Tx) error {
		ids, err := tx.IndexIDs(store.IndexQuery{Prefix: models.IndexPrefix(models.IndexBookmarkUser, userID)})
		if err != nil {
			return err
		}
		n = 0
		for _, id := range ids {
			if err := tx.Delete(models.KindBookmark, id); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logging.Ctx(ctx).Debug().Str("user_id", userID).Int("removed", n).Msg("Bookmarks cleared")
	s.publish(ctx, userID, notify.EventBookmarksCleared, notify.BookmarkChanged{Count: n})
	return n, nil
}

func (s *Service) publish(ctx context.Context, userID string, ev notify.Event, payload notify.BookmarkChanged) {
	s.notifier.Publish(ctx, notify.Notification{
		Topic:   notify.BookmarksTopic(userID),
		Event:   ev,
		Payload: payload,
	})
}
