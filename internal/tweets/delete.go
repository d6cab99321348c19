// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package tweets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
	"github.com/tomtom215/warbler/internal/sweep"
)

// DeclineReason says why a delete did not happen.
type DeclineReason string

const (
	ReasonNotFound      DeclineReason = "not_found"
	ReasonNotAuthorized DeclineReason = "not_authorized"
)

// DeleteOutcome is the result of Delete. A declined delete is not an error.
type DeleteOutcome struct {
	Deleted bool          `json:"deleted"`
	Reason  DeclineReason `json:"reason,omitempty"`

	// Cleaned counts engagement indexes rewritten in the delete commit.
	Cleaned int `json:"cleaned"`

	// Bookmarks counts bookmarks purged in the delete commit.
	Bookmarks int `json:"bookmarks"`

	// Journaled is set when a sweep entry was written for follow-up.
	Journaled bool `json:"journaled"`
}

// Delete removes tweetID on behalf of actor. The author's counters, the
// parent's reply count, bookmarks and engagement indexes are all fixed in the
// same commit that removes the tweet. When more users engaged than
// Config.InlineLimit allows, or more bookmarks exist than
// Config.BookmarkInlineLimit, that commit writes a sweep journal entry for
// the remainder and the sweep runs right after; if it fails the retry loop
// resumes it.
func (c *Coordinator) Delete(ctx context.Context, actor models.Actor, tweetID string) (out DeleteOutcome, err error) {
	start := time.Now()
	defer func() {
		switch {
		case err != nil:
			metrics.RecordOperation("delete_tweet", start, err)
		case out.Deleted:
			metrics.RecordOperationOutcome("delete_tweet", "ok", start)
		default:
			metrics.RecordOperationOutcome("delete_tweet", "declined_"+string(out.Reason), start)
		}
	}()

	var ownerID string
	err = c.store.Update(ctx, func(tx *store.Tx) error {
		out = DeleteOutcome{}

		var t models.Tweet
		err := tx.Get(models.KindTweet, tweetID, &t)
		if errors.Is(err, models.ErrNotFound) {
			out.Reason = ReasonNotFound
			return nil
		}
		if err != nil {
			return err
		}
		ownerID = t.AuthorID
		if t.AuthorID != actor.ID && !actor.Privileged {
			out.Reason = ReasonNotAuthorized
			return nil
		}

		now := time.Now().UTC()
		if err := releaseAuthor(tx, &t, now); err != nil {
			return err
		}
		if err := releaseParent(tx, &t, now); err != nil {
			return err
		}

		n, more, err := purgeBookmarks(tx, t.ID, c.cfg.BookmarkInlineLimit)
		if err != nil {
			return err
		}
		out.Bookmarks = n

		affected := affectedUsers(&t)
		if len(affected) <= c.cfg.InlineLimit {
			n, err := forgetInline(tx, t.ID, affected, now)
			if err != nil {
				return err
			}
			out.Cleaned = n
		}

		entry := c.journalEntry(&t, affected, more)
		if entry != nil {
			if err := sweep.Enqueue(tx, entry); err != nil {
				return err
			}
			out.Journaled = true
		}

		if err := tx.Delete(models.KindTweet, t.ID); err != nil {
			return err
		}
		out.Deleted = true
		return nil
	})
	if err != nil {
		return DeleteOutcome{}, fmt.Errorf("delete tweet %s: %w", tweetID, err)
	}

	c.audit.Record(ctx, &logging.AuditEvent{
		Action:     "tweet_delete",
		ActorID:    actor.ID,
		Privileged: actor.Privileged,
		TargetKind: string(models.KindTweet),
		TargetID:   tweetID,
		OwnerID:    ownerID,
		Allowed:    out.Deleted,
		Reason:     string(out.Reason),
	})
	if !out.Deleted {
		return out, nil
	}

	if out.Journaled && c.sweeper != nil {
		if err := c.sweeper.Process(ctx, tweetID); err != nil {
			// the tweet is gone; the journal keeps the cleanup obligation
			logging.Ctx(ctx).Warn().Err(err).Str("tweet_id", tweetID).Msg("Sweep deferred to retry loop")
		}
	}

	logging.Ctx(ctx).Info().
		Str("tweet_id", tweetID).
		Int("cleaned", out.Cleaned).
		Int("bookmarks", out.Bookmarks).
		Bool("journaled", out.Journaled).
		Msg("Tweet deleted")

	c.notifier.Publish(ctx, notify.Notification{
		Topic:   notify.TweetTopic(tweetID),
		Event:   notify.EventTweetDeleted,
		Payload: notify.TweetDeleted{TweetID: tweetID},
	})
	return out, nil
}

func (c *Coordinator) journalEntry(t *models.Tweet, affected []string, moreBookmarks bool) *sweep.Entry {
	switch {
	case c.cfg.FullScanVerify:
		return &sweep.Entry{TweetID: t.ID, Mode: sweep.ModeFull, Bookmarks: moreBookmarks}
	case len(affected) > c.cfg.InlineLimit:
		return &sweep.Entry{TweetID: t.ID, Mode: sweep.ModeDerived, Affected: affected, Bookmarks: moreBookmarks}
	case moreBookmarks:
		return &sweep.Entry{TweetID: t.ID, Mode: sweep.ModeDerived, Bookmarks: true}
	default:
		return nil
	}
}

func releaseAuthor(tx *store.Tx, t *models.Tweet, now time.Time) error {
	var author models.User
	err := tx.Get(models.KindUser, t.AuthorID, &author)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	author.TotalTweets = clamp(author.TotalTweets - 1)
	author.TotalPhotos = clamp(author.TotalPhotos - t.ImageCount())
	if author.PinnedTweetID == t.ID {
		author.PinnedTweetID = ""
	}
	author.UpdatedAt = now
	return tx.Put(&author)
}

func releaseParent(tx *store.Tx, t *models.Tweet, now time.Time) error {
	if !t.IsReply() {
		return nil
	}
	var parent models.Tweet
	err := tx.Get(models.KindTweet, t.ParentID, &parent)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if parent.ReplyCount <= 0 {
		return nil
	}
	parent.ReplyCount--
	parent.UpdatedAt = now
	return tx.Put(&parent)
}

// purgeBookmarks deletes at most limit bookmarks of tweetID and reports
// whether more remain.
func purgeBookmarks(tx *store.Tx, tweetID string, limit int) (int, bool, error) {
	ids, err := tx.IndexIDs(store.IndexQuery{
		Prefix: models.IndexPrefix(models.IndexBookmarkTweet, tweetID),
		Limit:  limit + 1,
	})
	if err != nil {
		return 0, false, err
	}
	more := len(ids) > limit
	if more {
		ids = ids[:limit]
	}
	n := 0
	for _, id := range ids {
		err := tx.Delete(models.KindBookmark, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, more, err
		}
		n++
	}
	return n, more, nil
}

func forgetInline(tx *store.Tx, tweetID string, userIDs []string, now time.Time) (int, error) {
	n := 0
	for _, uid := range userIDs {
		var ix models.EngagementIndex
		err := tx.Get(models.KindEngagement, uid, &ix)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		if !ix.Forget(tweetID) {
			continue
		}
		ix.UpdatedAt = now
		if err := tx.Put(&ix); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
