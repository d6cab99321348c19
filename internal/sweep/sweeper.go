// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/store"
)

// Config controls sweep execution.
type Config struct {
	// BatchSize is the number of engagement indexes read, or bookmarks
	// deleted, per transaction.
	BatchSize int

	// RatePerSecond caps engagement indexes visited per second; 0 disables.
	RatePerSecond float64

	// Interval between retry loop passes.
	Interval time.Duration

	// MaxAttempts before an entry is moved to the failed prefix.
	MaxAttempts int

	// Backoff is the base delay between attempts, doubled per attempt.
	Backoff time.Duration

	// ConfirmedTTL is how long confirmed entries are kept.
	ConfirmedTTL time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		RatePerSecond: 2000,
		Interval:      30 * time.Second,
		MaxAttempts:   20,
		Backoff:       5 * time.Second,
		ConfirmedTTL:  24 * time.Hour,
	}
}

// Sweeper executes journal entries.
type Sweeper struct {
	store   *store.Store
	cfg     Config
	limiter *rate.Limiter
	log     zerolog.Logger

	// tweet ids currently being swept by this process
	claims sync.Map
}

// New returns a Sweeper over s.
func New(s *store.Store, cfg Config) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ConfirmedTTL <= 0 {
		cfg.ConfirmedTTL = 24 * time.Hour
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Sweeper{
		store:   s,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.BatchSize),
		log:     logging.WithComponent("sweep"),
	}
}

// Config returns the effective configuration.
func (s *Sweeper) Config() Config {
	return s.cfg
}

func (s *Sweeper) tryClaim(tweetID string) bool {
	_, busy := s.claims.LoadOrStore(tweetID, time.Now())
	return !busy
}

func (s *Sweeper) release(tweetID string) {
	s.claims.Delete(tweetID)
}

// Process runs the pending entry for tweetID, if any, and confirms it.
// A sweep already running for the same tweet makes this a no-op.
func (s *Sweeper) Process(ctx context.Context, tweetID string) error {
	if !s.tryClaim(tweetID) {
		return nil
	}
	defer s.release(tweetID)

	var e *Entry
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		e, err = loadEntry(tx, prefixPending+tweetID)
		return err
	})
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	start := time.Now()
	done, runErr := s.run(ctx, e)
	if runErr != nil {
		metrics.SweepEntries.WithLabelValues("failed").Inc()
		// the request context may be the reason; record with a fresh one
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := recordAttempt(recCtx, s.store, tweetID, done, runErr); err != nil {
			s.log.Error().Err(err).Str("tweet_id", tweetID).Msg("Failed to record sweep attempt")
		}
		return fmt.Errorf("sweep %s: %w", tweetID, runErr)
	}

	if err := confirm(ctx, s.store, tweetID, done); err != nil {
		return fmt.Errorf("confirm sweep %s: %w", tweetID, err)
	}
	metrics.SweepEntries.WithLabelValues("confirmed").Inc()
	s.log.Debug().
		Str("tweet_id", tweetID).
		Str("mode", string(e.Mode)).
		Int("cleaned", done.cleaned).
		Int("bookmarks_purged", done.purged).
		Dur("took", time.Since(start)).
		Msg("Sweep confirmed")
	return nil
}

// run rewrites every engagement index that still mentions the tweet, then
// purges leftover bookmarks when the entry asks for it. The returned
// progress covers committed batches only.
func (s *Sweeper) run(ctx context.Context, e *Entry) (progress, error) {
	var done progress

	targets := e.Affected
	if e.Mode == ModeFull {
		ids, err := s.allEngagementIDs(ctx)
		if err != nil {
			return done, err
		}
		targets = ids
	}

	for start := 0; start < len(targets); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(targets) {
			end = len(targets)
		}
		batch := targets[start:end]

		if err := s.limiter.WaitN(ctx, len(batch)); err != nil {
			return done, fmt.Errorf("rate limit: %w", err)
		}

		n, err := s.cleanBatch(ctx, e.TweetID, batch)
		if err != nil {
			return done, err
		}
		done.cleaned += n
	}

	if !e.Bookmarks {
		return done, nil
	}
	for {
		if err := s.limiter.WaitN(ctx, s.cfg.BatchSize); err != nil {
			return done, fmt.Errorf("rate limit: %w", err)
		}
		n, err := s.purgeBookmarkBatch(ctx, e.TweetID)
		if err != nil {
			return done, err
		}
		done.purged += n
		if n < s.cfg.BatchSize {
			return done, nil
		}
	}
}

// purgeBookmarkBatch deletes up to BatchSize bookmarks of tweetID in one
// transaction and reports how many it found.
func (s *Sweeper) purgeBookmarkBatch(ctx context.Context, tweetID string) (int, error) {
	var n int
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		var hits []store.IndexEntry
		err := tx.IndexScan(store.IndexQuery{
			Prefix: models.IndexPrefix(models.IndexBookmarkTweet, tweetID),
			Limit:  s.cfg.BatchSize,
		}, func(e store.IndexEntry) (bool, error) {
			hits = append(hits, e)
			return true, nil
		})
		if err != nil {
			return err
		}
		n = len(hits)
		for _, h := range hits {
			err := tx.Delete(models.KindBookmark, h.ID)
			if errors.Is(err, models.ErrNotFound) {
				// orphaned index entry; drop it so the loop terminates
				err = tx.DeleteRaw(h.Key)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge bookmarks: %w", err)
	}
	metrics.SweepBookmarksPurged.Add(float64(n))
	return n, nil
}

// cleanBatch is one transaction over a slice of user ids. Only records
// that actually change are written.
func (s *Sweeper) cleanBatch(ctx context.Context, tweetID string, userIDs []string) (int, error) {
	changed := 0
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		changed = 0
		for _, uid := range userIDs {
			var ix models.EngagementIndex
			err := tx.Get(models.KindEngagement, uid, &ix)
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !ix.Forget(tweetID) {
				continue
			}
			ix.UpdatedAt = time.Now().UTC()
			if err := tx.Put(&ix); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.SweepRecordsCleaned.Add(float64(changed))
	return changed, nil
}

func (s *Sweeper) allEngagementIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.store.View(ctx, func(tx *store.Tx) error {
		return store.Scan(tx, models.KindEngagement, func(ix *models.EngagementIndex) (bool, error) {
			ids = append(ids, ix.UserID)
			return true, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list engagement indexes: %w", err)
	}
	return ids, nil
}

// Recover runs every pending entry once. Called at startup.
func (s *Sweeper) Recover(ctx context.Context) error {
	entries, err := Pending(ctx, s.store)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	s.log.Info().Int("pending", len(entries)).Msg("Recovering pending sweeps")

	var failed int
	for _, e := range entries {
		if err := s.Process(ctx, e.TweetID); err != nil {
			failed++
			s.log.Warn().Err(err).Str("tweet_id", e.TweetID).Msg("Sweep recovery attempt failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sweeps still pending", failed, len(entries))
	}
	return nil
}
