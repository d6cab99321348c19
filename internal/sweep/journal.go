// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package sweep removes a deleted tweet's id from users' engagement indexes
// when that cannot be done inside the delete transaction itself.
//
// The delete transaction writes a journal entry under sweep:pending:<tweetId>
// in the same Badger commit that removes the tweet, so a crash can never
// lose the obligation to clean up. A Sweeper then rewrites the affected
// EngagementIndex records in small batches, one transaction each, and moves
// the entry to sweep:confirmed:. Running a sweep twice is harmless: a record
// that no longer mentions the tweet is left untouched.
//
// Until a sweep finishes, readers skip ids that no longer resolve.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/store"
)

// Key prefixes.
const (
	prefixPending   = "sweep:pending:"
	prefixConfirmed = "sweep:confirmed:"
	prefixFailed    = "sweep:failed:"
)

// Mode selects which engagement indexes a sweep visits.
type Mode string

const (
	// ModeDerived visits only the users recorded in Entry.Affected, taken
	// from the tweet's own liker and retweeter sets.
	ModeDerived Mode = "derived"

	// ModeFull visits every engagement index. Used to verify, or when the
	// tweet-side sets cannot be trusted.
	ModeFull Mode = "full"
)

// Entry is one pending cleanup obligation.
type Entry struct {
	TweetID  string   `json:"tweet_id"`
	Mode     Mode     `json:"mode"`
	Affected []string `json:"affected,omitempty"`

	// Bookmarks asks the sweep to delete bookmarks of the tweet that the
	// delete transaction left behind.
	Bookmarks bool `json:"bookmarks,omitempty"`

	CreatedAt     time.Time  `json:"created_at"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt time.Time  `json:"last_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Cleaned       int        `json:"cleaned"`
	Purged        int        `json:"purged"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

// Enqueue records a pending sweep inside the caller's transaction.
func Enqueue(tx *store.Tx, e *Entry) error {
	if e.TweetID == "" {
		return errors.New("sweep entry without tweet id")
	}
	if e.Mode == "" {
		e.Mode = ModeDerived
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode sweep entry: %w", err)
	}
	return tx.SetRaw(prefixPending+e.TweetID, data)
}

func loadEntry(tx *store.Tx, key string) (*Entry, error) {
	data, err := tx.GetRaw(key)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode sweep entry %s: %w", key, err)
	}
	return &e, nil
}

func listEntries(ctx context.Context, s *store.Store, prefix string) ([]*Entry, error) {
	var entries []*Entry
	err := s.View(ctx, func(tx *store.Tx) error {
		return tx.ScanRaw(prefix, func(key string, value []byte) (bool, error) {
			var e Entry
			if err := json.Unmarshal(value, &e); err != nil {
				return true, nil
			}
			entries = append(entries, &e)
			return true, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list sweep entries: %w", err)
	}
	return entries, nil
}

// Pending returns entries that still need to run.
func Pending(ctx context.Context, s *store.Store) ([]*Entry, error) {
	return listEntries(ctx, s, prefixPending)
}

// Failed returns entries that were given up on.
func Failed(ctx context.Context, s *store.Store) ([]*Entry, error) {
	return listEntries(ctx, s, prefixFailed)
}

// progress is what committed batches of one run achieved.
type progress struct {
	cleaned int
	purged  int
}

// confirm moves the entry from pending to confirmed.
func confirm(ctx context.Context, s *store.Store, tweetID string, p progress) error {
	return s.Update(ctx, func(tx *store.Tx) error {
		e, err := loadEntry(tx, prefixPending+tweetID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		e.ConfirmedAt = &now
		e.Cleaned += p.cleaned
		e.Purged += p.purged
		e.LastError = ""
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode sweep entry: %w", err)
		}
		if err := tx.SetRaw(prefixConfirmed+tweetID, data); err != nil {
			return err
		}
		return tx.DeleteRaw(prefixPending + tweetID)
	})
}

// recordAttempt bumps the attempt counter after a failure. Progress made by
// batches that did commit is kept in Cleaned and Purged.
func recordAttempt(ctx context.Context, s *store.Store, tweetID string, p progress, cause error) error {
	return s.Update(ctx, func(tx *store.Tx) error {
		e, err := loadEntry(tx, prefixPending+tweetID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		e.Attempts++
		e.LastAttemptAt = time.Now().UTC()
		e.LastError = cause.Error()
		e.Cleaned += p.cleaned
		e.Purged += p.purged
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode sweep entry: %w", err)
		}
		return tx.SetRaw(prefixPending+tweetID, data)
	})
}

// abandon moves an entry that exhausted its attempts to the failed prefix.
func abandon(ctx context.Context, s *store.Store, tweetID string) error {
	return s.Update(ctx, func(tx *store.Tx) error {
		data, err := tx.GetRaw(prefixPending + tweetID)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.SetRaw(prefixFailed+tweetID, data); err != nil {
			return err
		}
		return tx.DeleteRaw(prefixPending + tweetID)
	})
}

// Requeue moves a failed entry back to pending with a fresh attempt count.
func Requeue(ctx context.Context, s *store.Store, tweetID string) error {
	return s.Update(ctx, func(tx *store.Tx) error {
		e, err := loadEntry(tx, prefixFailed+tweetID)
		if err != nil {
			return err
		}
		e.Attempts = 0
		e.LastError = ""
		if err := Enqueue(tx, e); err != nil {
			return err
		}
		return tx.DeleteRaw(prefixFailed + tweetID)
	})
}

// compactConfirmed deletes confirmed entries older than ttl.
func compactConfirmed(ctx context.Context, s *store.Store, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	var stale []string
	err := s.View(ctx, func(tx *store.Tx) error {
		return tx.ScanRaw(prefixConfirmed, func(key string, value []byte) (bool, error) {
			var e Entry
			if err := json.Unmarshal(value, &e); err != nil || e.ConfirmedAt == nil || e.ConfirmedAt.Before(cutoff) {
				stale = append(stale, key)
			}
			return true, nil
		})
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}
	err = s.Update(ctx, func(tx *store.Tx) error {
		for _, k := range stale {
			if err := tx.DeleteRaw(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

// Stats counts journal entries by state.
type Stats struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
}

// GetStats counts journal entries.
func GetStats(ctx context.Context, s *store.Store) (Stats, error) {
	var st Stats
	err := s.View(ctx, func(tx *store.Tx) error {
		for prefix, n := range map[string]*int{
			prefixPending:   &st.Pending,
			prefixConfirmed: &st.Confirmed,
			prefixFailed:    &st.Failed,
		} {
			if err := tx.ScanRaw(prefix, func(string, []byte) (bool, error) {
				*n++
				return true, nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return st, err
}
