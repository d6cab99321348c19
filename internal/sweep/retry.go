// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/warbler/internal/metrics"
)

// RetryLoop periodically re-runs pending sweeps and compacts confirmed ones.
type RetryLoop struct {
	sweeper *Sweeper

	mu       sync.Mutex
	cancel   context.CancelFunc
	running  bool
	stopDone chan struct{}
}

// NewRetryLoop returns a stopped loop.
func NewRetryLoop(s *Sweeper) *RetryLoop {
	return &RetryLoop{sweeper: s}
}

// Start launches the loop. Calling Start on a running loop does nothing.
func (r *RetryLoop) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.stopDone = make(chan struct{})
	go r.run(loopCtx, r.stopDone)

	r.sweeper.log.Info().
		Dur("interval", r.sweeper.cfg.Interval).
		Int("max_attempts", r.sweeper.cfg.MaxAttempts).
		Msg("Sweep retry loop started")
	return nil
}

// Stop cancels the loop and waits for the current pass to end.
func (r *RetryLoop) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.running = false
	done := r.stopDone
	r.mu.Unlock()

	<-done
	r.sweeper.log.Info().Msg("Sweep retry loop stopped")
}

// IsRunning reports whether the loop is active.
func (r *RetryLoop) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *RetryLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.sweeper.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// PassResult summarizes one retry pass.
type PassResult struct {
	Succeeded int
	Failed    int
	Skipped   int
	Abandoned int
	Compacted int
}

// RunOnce performs a single retry pass.
func (r *RetryLoop) RunOnce(ctx context.Context) PassResult {
	var res PassResult
	s := r.sweeper

	entries, err := Pending(ctx, s.store)
	if err != nil {
		s.log.Error().Err(err).Msg("Sweep retry: listing pending entries failed")
		return res
	}
	metrics.SweepPending.Set(float64(len(entries)))

	for _, e := range entries {
		if ctx.Err() != nil {
			return res
		}

		if e.Attempts >= s.cfg.MaxAttempts {
			if err := abandon(ctx, s.store, e.TweetID); err != nil {
				s.log.Error().Err(err).Str("tweet_id", e.TweetID).Msg("Sweep retry: abandon failed")
				continue
			}
			metrics.SweepEntries.WithLabelValues("abandoned").Inc()
			s.log.Error().
				Str("tweet_id", e.TweetID).
				Int("attempts", e.Attempts).
				Str("last_error", e.LastError).
				Msg("Sweep gave up; entry moved to failed")
			res.Abandoned++
			continue
		}

		if !r.ready(e) {
			res.Skipped++
			continue
		}

		if err := s.Process(ctx, e.TweetID); err != nil {
			s.log.Warn().Err(err).Str("tweet_id", e.TweetID).Int("attempt", e.Attempts+1).Msg("Sweep retry failed")
			res.Failed++
			continue
		}
		res.Succeeded++
	}

	n, err := compactConfirmed(ctx, s.store, s.cfg.ConfirmedTTL)
	if err != nil {
		s.log.Warn().Err(err).Msg("Sweep journal compaction failed")
	}
	res.Compacted = n

	if res.Succeeded > 0 || res.Failed > 0 || res.Abandoned > 0 {
		s.log.Info().
			Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).
			Int("abandoned", res.Abandoned).
			Int("compacted", res.Compacted).
			Msg("Sweep retry pass complete")
	}
	return res
}

func (r *RetryLoop) ready(e *Entry) bool {
	if e.LastAttemptAt.IsZero() {
		return true
	}
	return time.Since(e.LastAttemptAt) >= backoff(r.sweeper.cfg.Backoff, e.Attempts)
}

// backoff is base * 2^attempts capped at five minutes.
func backoff(base time.Duration, attempts int) time.Duration {
	const ceiling = 5 * time.Minute
	if base <= 0 {
		return 0
	}
	if attempts > 20 {
		return ceiling
	}
	d := base << uint(attempts)
	if d <= 0 || d > ceiling {
		return ceiling
	}
	return d
}
