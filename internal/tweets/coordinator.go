// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package tweets creates and deletes tweets while keeping the author's
// counters, the parent's reply count, bookmarks and every engagement index
// in step with the tweet's existence.
package tweets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tomtom215/warbler/internal/idset"
	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
	"github.com/tomtom215/warbler/internal/sweep"
	"github.com/tomtom215/warbler/internal/validation"
)

// Config tunes deletion.
type Config struct {
	// InlineLimit is the largest number of engaged users cleaned inside the
	// delete transaction. Larger sets go to the sweep journal.
	InlineLimit int

	// BookmarkInlineLimit is the largest number of bookmarks deleted inside
	// the delete transaction. The rest are left to the sweep, and readers
	// already skip bookmarks whose tweet is gone.
	BookmarkInlineLimit int

	// FullScanVerify journals a full sweep over every engagement index on
	// each delete, on top of the inline cleanup.
	FullScanVerify bool
}

const defaultBookmarkInlineLimit = 1000

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{InlineLimit: 256, BookmarkInlineLimit: defaultBookmarkInlineLimit}
}

// Content is the input to Create.
type Content struct {
	Text     string         `json:"text"`
	Images   []models.Image `json:"images" validate:"max=4,dive"`
	ParentID string         `json:"parentId"`
}

// Coordinator owns the tweet lifecycle.
type Coordinator struct {
	store    *store.Store
	sweeper  *sweep.Sweeper
	notifier notify.Publisher
	audit    *logging.AuditLogger
	cfg      Config
}

// New creates a Coordinator. sweeper may be nil, in which case journaled
// sweeps wait for the retry loop. A nil notifier discards notifications.
func New(s *store.Store, sw *sweep.Sweeper, n notify.Publisher, cfg Config) *Coordinator {
	if n == nil {
		n = notify.Discard
	}
	if cfg.InlineLimit < 0 {
		cfg.InlineLimit = 0
	}
	if cfg.BookmarkInlineLimit <= 0 {
		cfg.BookmarkInlineLimit = defaultBookmarkInlineLimit
	}
	return &Coordinator{
		store:    s,
		sweeper:  sw,
		notifier: n,
		audit:    logging.NewAuditLogger(),
		cfg:      cfg,
	}
}

// Create validates c, stores a new tweet by actor and updates the author's
// counters and the parent's reply count in the same commit. A parent that no
// longer exists is skipped; the reply is kept as orphaned text.
func (c *Coordinator) Create(ctx context.Context, actor models.Actor, content Content) (tw *models.Tweet, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("create_tweet", start, err) }()

	if err := checkContent(actor, &content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &models.Tweet{
		ID:        uuid.NewString(),
		Text:      content.Text,
		Images:    content.Images,
		ParentID:  content.ParentID,
		AuthorID:  actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range t.Images {
		if t.Images[i].ID == "" {
			t.Images[i].ID = uuid.NewString()
		}
	}

	var parentReplies = -1
	err = c.store.Update(ctx, func(tx *store.Tx) error {
		parentReplies = -1

		var author models.User
		if err := tx.Get(models.KindUser, actor.ID, &author); err != nil {
			return err
		}

		if t.ParentID != "" {
			var parent models.Tweet
			err := tx.Get(models.KindTweet, t.ParentID, &parent)
			switch {
			case errors.Is(err, models.ErrNotFound):
				// orphaned reply
			case err != nil:
				return err
			default:
				t.ParentAuthorHandle, err = handleOf(tx, parent.AuthorID, &author)
				if err != nil {
					return err
				}
				parent.ReplyCount++
				parent.UpdatedAt = now
				if err := tx.Put(&parent); err != nil {
					return err
				}
				parentReplies = parent.ReplyCount
			}
		}

		author.TotalTweets++
		author.TotalPhotos += t.ImageCount()
		author.UpdatedAt = now
		if err := tx.Put(&author); err != nil {
			return err
		}
		return tx.Put(t)
	})
	if err != nil {
		return nil, fmt.Errorf("create tweet: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("tweet_id", t.ID).
		Str("author_id", t.AuthorID).
		Str("parent_id", t.ParentID).
		Int("images", t.ImageCount()).
		Msg("Tweet created")

	if parentReplies >= 0 {
		c.notifier.Publish(ctx, notify.Notification{
			Topic:   notify.TweetTopic(t.ParentID),
			Event:   notify.EventReplyAdded,
			Payload: notify.ReplyAdded{TweetID: t.ParentID, ReplyID: t.ID, ReplyCount: parentReplies},
		})
	}
	return t, nil
}

// handleOf returns the handle of userID, reusing author when it is the same
// user. A missing user gives an empty handle.
func handleOf(tx *store.Tx, userID string, author *models.User) (string, error) {
	if userID == author.ID {
		return author.Handle, nil
	}
	var u models.User
	err := tx.Get(models.KindUser, userID, &u)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.Handle, nil
}

func checkContent(actor models.Actor, c *Content) error {
	if strings.TrimSpace(c.Text) == "" && len(c.Images) == 0 {
		return models.NewValidation("text", "a tweet needs text or at least one image")
	}
	if n := utf8.RuneCountInString(c.Text); n > actor.TextLimit() {
		return models.NewValidation("text", fmt.Sprintf("text is %d characters, the limit is %d", n, actor.TextLimit()))
	}
	if len(c.Images) > models.MaxImagesPerTweet {
		return models.NewValidation("images", fmt.Sprintf("at most %d images per tweet", models.MaxImagesPerTweet))
	}
	return validation.Validate(c)
}

// Get loads a tweet with its author attached.
func (c *Coordinator) Get(ctx context.Context, id string) (*models.TweetView, error) {
	var view *models.TweetView
	err := c.store.View(ctx, func(tx *store.Tx) error {
		var t models.Tweet
		if err := tx.Get(models.KindTweet, id, &t); err != nil {
			return err
		}
		view = &models.TweetView{Tweet: &t}
		var u models.User
		err := tx.Get(models.KindUser, t.AuthorID, &u)
		switch {
		case err == nil:
			view.Author = &u
		case !errors.Is(err, models.ErrNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// affectedUsers is the set of users whose engagement index mentions t,
// taken from the tweet's own engager sets.
func affectedUsers(t *models.Tweet) []string {
	return idset.Union(t.LikerIDs, t.RetweeterIDs).IDs()
}
