// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package bookmarks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
)

func setup(t *testing.T) (*Service, *store.Store, *notify.Recorder) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err = s.Update(context.Background(), func(tx *store.Tx) error {
		for _, id := range []string{"alice", "bob"} {
			if err := tx.Put(&models.User{ID: id, Handle: id, Email: id + "@example.com", CreatedAt: base}); err != nil {
				return err
			}
		}
		for i, id := range []string{"t1", "t2", "t3"} {
			if err := tx.Put(&models.Tweet{ID: id, AuthorID: "bob", Text: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec := &notify.Recorder{}
	return New(s, rec), s, rec
}

func TestAddIsUniquePerPair(t *testing.T) {
	svc, _, rec := setup(t)
	ctx := context.Background()

	first, created, err := svc.Add(ctx, "alice", "t1")
	if err != nil || !created {
		t.Fatalf("Add = %v, %v, %v", first, created, err)
	}
	again, created, err := svc.Add(ctx, "alice", "t1")
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("repeat Add = %v, %v, %v", again, created, err)
	}

	added := 0
	for _, n := range rec.Notifications() {
		if n.Event == notify.EventBookmarkAdded {
			added++
			if n.Topic != notify.BookmarksTopic("alice") {
				t.Errorf("topic = %s", n.Topic)
			}
		}
	}
	if added != 1 {
		t.Errorf("BookmarkAdded sent %d times, want 1", added)
	}
}

func TestAddNotFound(t *testing.T) {
	svc, _, _ := setup(t)
	tests := []struct {
		user, tweet string
	}{
		{"alice", "missing"},
		{"ghost", "t1"},
	}
	for _, tt := range tests {
		if _, _, err := svc.Add(context.Background(), tt.user, tt.tweet); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Add(%s, %s) = %v, want not found", tt.user, tt.tweet, err)
		}
	}
}

func TestListNewestFirstSkipsDangling(t *testing.T) {
	svc, s, _ := setup(t)
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		if _, _, err := svc.Add(ctx, "alice", id); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}
	if _, _, err := svc.Add(ctx, "bob", "t1"); err != nil {
		t.Fatal(err)
	}

	// t2 disappears without its bookmark being purged
	if err := s.Update(ctx, func(tx *store.Tx) error { return tx.Delete(models.KindTweet, "t2") }); err != nil {
		t.Fatal(err)
	}

	got, err := svc.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].TweetID != "t3" || got[1].TweetID != "t1" {
		t.Fatalf("List = %v", got)
	}
	if got[0].Tweet == nil || got[0].Tweet.Author == nil || got[0].Tweet.Author.ID != "bob" {
		t.Errorf("tweet view not attached: %+v", got[0].Tweet)
	}

	got, err = svc.List(ctx, "alice", 1)
	if err != nil || len(got) != 1 || got[0].TweetID != "t3" {
		t.Errorf("limited List = %v, %v", got, err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, _, rec := setup(t)
	ctx := context.Background()
	if _, _, err := svc.Add(ctx, "alice", "t1"); err != nil {
		t.Fatal(err)
	}

	removed, err := svc.Remove(ctx, "alice", "t1")
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	rec.Reset()
	removed, err = svc.Remove(ctx, "alice", "t1")
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v", removed, err)
	}
	if len(rec.Notifications()) != 0 {
		t.Errorf("no-op remove notified: %v", rec.Notifications())
	}

	// the pair can be bookmarked again
	if _, created, err := svc.Add(ctx, "alice", "t1"); err != nil || !created {
		t.Errorf("re-Add = %v, %v", created, err)
	}
}

func TestClear(t *testing.T) {
	svc, _, rec := setup(t)
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		if _, _, err := svc.Add(ctx, "alice", id); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := svc.Add(ctx, "bob", "t1"); err != nil {
		t.Fatal(err)
	}

	n, err := svc.Clear(ctx, "alice")
	if err != nil || n != 3 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	if got, _ := svc.List(ctx, "alice", 0); len(got) != 0 {
		t.Errorf("alice still has %d bookmarks", len(got))
	}
	if got, _ := svc.List(ctx, "bob", 0); len(got) != 1 {
		t.Errorf("bob's bookmarks touched: %d", len(got))
	}
	if last, ok := rec.Last(notify.EventBookmarksCleared); !ok || last.Payload.(notify.BookmarkChanged).Count != 3 {
		t.Errorf("cleared notification = %+v, %v", last, ok)
	}
}
