// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/warbler/internal/metrics"
)

// RunValueLogGC rewrites value log files until Badger reports nothing left
// to collect. In-memory stores have no value log and return nil.
func (s *Store) RunValueLogGC(ratio float64) error {
	if s.opts.InMemory || s.isClosed() {
		return nil
	}
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	rewrites := 0
	for {
		err := s.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			metrics.StoreGCRuns.WithLabelValues("error").Inc()
			return err
		}
		rewrites++
	}
	if rewrites > 0 {
		metrics.StoreGCRuns.WithLabelValues("rewritten").Inc()
		s.log.Debug().Int("rewrites", rewrites).Msg("Value log GC reclaimed space")
	} else {
		metrics.StoreGCRuns.WithLabelValues("nothing").Inc()
	}
	return nil
}

// GCLoop runs RunValueLogGC every interval until ctx is done.
func (s *Store) GCLoop(ctx context.Context, interval time.Duration, ratio float64) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunValueLogGC(ratio); err != nil {
				s.log.Warn().Err(err).Msg("Value log GC failed")
			}
		}
	}
}
