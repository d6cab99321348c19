// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package sweep

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/warbler/internal/idset"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedIndexes(t *testing.T, s *store.Store, n int, tweetID string) {
	t.Helper()
	err := s.Update(context.Background(), func(tx *store.Tx) error {
		for i := 0; i < n; i++ {
			ix := &models.EngagementIndex{
				UserID:            fmt.Sprintf("u%02d", i),
				LikedTweetIDs:     idset.New(tweetID, "keep"),
				RetweetedTweetIDs: idset.New(),
			}
			if i%2 == 0 {
				ix.RetweetedTweetIDs.Add(tweetID)
			}
			if err := tx.Put(ix); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func enqueue(t *testing.T, s *store.Store, e *Entry) {
	t.Helper()
	if err := s.Update(context.Background(), func(tx *store.Tx) error { return Enqueue(tx, e) }); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func assertClean(t *testing.T, s *store.Store, tweetID string) {
	t.Helper()
	err := s.View(context.Background(), func(tx *store.Tx) error {
		return store.Scan(tx, models.KindEngagement, func(ix *models.EngagementIndex) (bool, error) {
			if ix.References(tweetID) {
				t.Errorf("%s still references %s", ix.UserID, tweetID)
			}
			if !ix.LikedTweetIDs.Has("keep") {
				t.Errorf("%s lost an unrelated like", ix.UserID)
			}
			return true, nil
		})
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestProcessDerived(t *testing.T) {
	s := openStore(t)
	seedIndexes(t, s, 7, "t1")

	affected := []string{"u00", "u01", "u02", "u03", "u04", "u05", "u06", "ghost"}
	enqueue(t, s, &Entry{TweetID: "t1", Mode: ModeDerived, Affected: affected})

	sw := New(s, Config{BatchSize: 3})
	if err := sw.Process(context.Background(), "t1"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	assertClean(t, s, "t1")

	st, err := GetStats(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if st.Pending != 0 || st.Confirmed != 1 {
		t.Errorf("stats = %+v", st)
	}

	// second run has nothing left to do
	if err := sw.Process(context.Background(), "t1"); err != nil {
		t.Errorf("re-run: %v", err)
	}
}

func TestProcessBookmarks(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	orphan := models.IndexKey(models.IndexBookmarkTweet, "t1", "gone-t1")
	err := s.Update(ctx, func(tx *store.Tx) error {
		for i := 0; i < 7; i++ {
			for _, tweetID := range []string{"t1", "t2"} {
				uid := fmt.Sprintf("u%02d", i)
				b := &models.Bookmark{ID: uid + "-" + tweetID, UserID: uid, TweetID: tweetID, CreatedAt: time.Now()}
				if err := tx.Put(b); err != nil {
					return err
				}
			}
		}
		return tx.SetRaw(orphan, []byte("gone-t1"))
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	enqueue(t, s, &Entry{TweetID: "t1", Mode: ModeDerived, Bookmarks: true})

	if err := New(s, Config{BatchSize: 3}).Process(ctx, "t1"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	count := func(tweetID string) int {
		var n int
		err := s.View(ctx, func(tx *store.Tx) error {
			var err error
			n, err = tx.IndexCount(store.IndexQuery{Prefix: models.IndexPrefix(models.IndexBookmarkTweet, tweetID)})
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		return n
	}
	if got := count("t1"); got != 0 {
		t.Errorf("t1 bookmarks left = %d", got)
	}
	if got := count("t2"); got != 7 {
		t.Errorf("t2 bookmarks = %d, want 7 untouched", got)
	}

	err = s.View(ctx, func(tx *store.Tx) error {
		e, err := loadEntry(tx, prefixConfirmed+"t1")
		if err != nil {
			return err
		}
		if e.Purged != 8 {
			t.Errorf("purged = %d, want 7 bookmarks and 1 orphaned entry", e.Purged)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestProcessFullScan(t *testing.T) {
	s := openStore(t)
	seedIndexes(t, s, 5, "t2")

	// no affected ids recorded: only a full scan can find them
	enqueue(t, s, &Entry{TweetID: "t2", Mode: ModeFull})

	sw := New(s, Config{BatchSize: 2})
	if err := sw.Process(context.Background(), "t2"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	assertClean(t, s, "t2")
}

func TestProcessWithoutEntry(t *testing.T) {
	s := openStore(t)
	sw := New(s, DefaultConfig())
	if err := sw.Process(context.Background(), "missing"); err != nil {
		t.Errorf("Process without entry = %v, want nil", err)
	}
}

func TestProcessFailureIsRecorded(t *testing.T) {
	s := openStore(t)
	seedIndexes(t, s, 2, "t3")
	enqueue(t, s, &Entry{TweetID: "t3", Mode: ModeDerived, Affected: []string{"u00", "u01"}})

	// one token up front, the next one far beyond the deadline
	slow := New(s, Config{BatchSize: 1, RatePerSecond: 0.001})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := slow.Process(ctx, "t3"); err == nil {
		t.Fatal("Process should fail when the limiter cannot admit the second batch")
	}

	pending, err := Pending(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError == "" {
		t.Fatalf("pending = %+v", pending)
	}
	if pending[0].Cleaned != 1 {
		t.Errorf("cleaned = %d, want progress of the committed batch", pending[0].Cleaned)
	}

	// a later retry finishes the job
	if err := New(s, DefaultConfig()).Process(context.Background(), "t3"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	assertClean(t, s, "t3")
}

func TestRetryLoopAbandonsAfterMaxAttempts(t *testing.T) {
	s := openStore(t)
	enqueue(t, s, &Entry{TweetID: "t4", Mode: ModeDerived, Attempts: 3})

	loop := NewRetryLoop(New(s, Config{MaxAttempts: 3}))
	res := loop.RunOnce(context.Background())
	if res.Abandoned != 1 {
		t.Fatalf("result = %+v", res)
	}

	failed, err := Failed(context.Background(), s)
	if err != nil || len(failed) != 1 {
		t.Fatalf("failed = %v, %v", failed, err)
	}

	if err := Requeue(context.Background(), s, "t4"); err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	pending, _ := Pending(context.Background(), s)
	if len(pending) != 1 || pending[0].Attempts != 0 {
		t.Errorf("requeued = %+v", pending)
	}
}

func TestRetryLoopRunsReadyEntries(t *testing.T) {
	s := openStore(t)
	seedIndexes(t, s, 3, "t5")
	enqueue(t, s, &Entry{TweetID: "t5", Mode: ModeFull})
	enqueue(t, s, &Entry{
		TweetID:       "t6",
		Mode:          ModeFull,
		Attempts:      2,
		LastAttemptAt: time.Now(),
	})

	loop := NewRetryLoop(New(s, Config{Backoff: time.Hour, MaxAttempts: 5}))
	res := loop.RunOnce(context.Background())
	if res.Succeeded != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	assertClean(t, s, "t5")
}

func TestRetryLoopStartStop(t *testing.T) {
	s := openStore(t)
	loop := NewRetryLoop(New(s, Config{Interval: 10 * time.Millisecond}))

	if err := loop.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !loop.IsRunning() {
		t.Error("loop should be running")
	}
	_ = loop.Start(context.Background())
	loop.Stop()
	if loop.IsRunning() {
		t.Error("loop should be stopped")
	}
	loop.Stop()
}

func TestCompactConfirmed(t *testing.T) {
	s := openStore(t)
	enqueue(t, s, &Entry{TweetID: "t7", Mode: ModeDerived})
	sw := New(s, DefaultConfig())
	if err := sw.Process(context.Background(), "t7"); err != nil {
		t.Fatal(err)
	}

	n, err := compactConfirmed(context.Background(), s, time.Hour)
	if err != nil || n != 0 {
		t.Errorf("fresh entry compacted: n=%d err=%v", n, err)
	}
	n, err = compactConfirmed(context.Background(), s, -time.Second)
	if err != nil || n != 1 {
		t.Errorf("expired entry not compacted: n=%d err=%v", n, err)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		base     time.Duration
		attempts int
		want     time.Duration
	}{
		{time.Second, 0, time.Second},
		{time.Second, 3, 8 * time.Second},
		{time.Second, 40, 5 * time.Minute},
		{time.Minute, 4, 5 * time.Minute},
		{0, 3, 0},
	}
	for _, tt := range tests {
		if got := backoff(tt.base, tt.attempts); got != tt.want {
			t.Errorf("backoff(%v, %d) = %v, want %v", tt.base, tt.attempts, got, tt.want)
		}
	}
}
