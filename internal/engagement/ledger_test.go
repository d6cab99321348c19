// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package engagement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
)

func setup(t *testing.T, users []string, tweets ...string) (*Ledger, *store.Store, *notify.Recorder) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	err = s.Update(context.Background(), func(tx *store.Tx) error {
		for _, u := range users {
			if err := tx.Put(&models.EngagementIndex{UserID: u}); err != nil {
				return err
			}
		}
		for i, id := range tweets {
			tw := &models.Tweet{ID: id, Text: "hi", AuthorID: "author", CreatedAt: time.Unix(int64(i), 0)}
			if err := tx.Put(tw); err != nil {
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

func load(t *testing.T, s *store.Store, userID, tweetID string) (models.EngagementIndex, models.Tweet) {
	t.Helper()
	var ix models.EngagementIndex
	var tw models.Tweet
	err := s.View(context.Background(), func(tx *store.Tx) error {
		if err := tx.Get(models.KindEngagement, userID, &ix); err != nil {
			return err
		}
		return tx.Get(models.KindTweet, tweetID, &tw)
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ix, tw
}

func TestLikeSymmetry(t *testing.T) {
	l, s, rec := setup(t, []string{"u2"}, "t1")
	ctx := context.Background()

	res, err := l.Like(ctx, "u2", "t1")
	if err != nil {
		t.Fatalf("Like: %v", err)
	}
	if !res.Changed || res.Count != 1 || !res.Active {
		t.Errorf("Like result = %+v", res)
	}
	ix, tw := load(t, s, "u2", "t1")
	if !tw.LikerIDs.Has("u2") || !ix.LikedTweetIDs.Has("t1") {
		t.Errorf("after like: likers=%v liked=%v", tw.LikerIDs.IDs(), ix.LikedTweetIDs.IDs())
	}
	if tw.RetweeterIDs.Len() != 0 || ix.RetweetedTweetIDs.Len() != 0 {
		t.Error("like touched retweet sets")
	}

	n, ok := rec.Last(notify.EventTweetLiked)
	if !ok || n.Topic != "tweet_t1" || n.Payload.(notify.TweetLiked).LikeCount != 1 {
		t.Errorf("notification = %+v, %v", n, ok)
	}

	if _, err := l.Unlike(ctx, "u2", "t1"); err != nil {
		t.Fatalf("Unlike: %v", err)
	}
	ix, tw = load(t, s, "u2", "t1")
	if tw.LikerIDs.Has("u2") || ix.LikedTweetIDs.Has("t1") {
		t.Error("unlike left one side behind")
	}
}

func TestRetweetSymmetry(t *testing.T) {
	l, s, rec := setup(t, []string{"u1", "u2"}, "t1")
	ctx := context.Background()

	for _, u := range []string{"u1", "u2"} {
		if _, err := l.Retweet(ctx, u, "t1"); err != nil {
			t.Fatalf("Retweet %s: %v", u, err)
		}
	}
	_, tw := load(t, s, "u1", "t1")
	if tw.RetweeterIDs.Len() != 2 {
		t.Errorf("retweeters = %v", tw.RetweeterIDs.IDs())
	}
	n, _ := rec.Last(notify.EventTweetRetweeted)
	if n.Payload.(notify.TweetRetweeted).RetweetCount != 2 {
		t.Errorf("notification = %+v", n)
	}

	res, err := l.Unretweet(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("Unretweet: %v", err)
	}
	if res.Count != 1 {
		t.Errorf("count = %d, want 1", res.Count)
	}
	ix, _ := load(t, s, "u1", "t1")
	if ix.RetweetedTweetIDs.Has("t1") {
		t.Error("u1 index still lists the retweet")
	}
}

func TestIdempotence(t *testing.T) {
	tests := []struct {
		name string
		op   func(l *Ledger) (Result, error)
	}{
		{"like", func(l *Ledger) (Result, error) { return l.Like(context.Background(), "u1", "t1") }},
		{"retweet", func(l *Ledger) (Result, error) { return l.Retweet(context.Background(), "u1", "t1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, s, rec := setup(t, []string{"u1"}, "t1")
			first, err := tt.op(l)
			if err != nil {
				t.Fatal(err)
			}
			second, err := tt.op(l)
			if err != nil {
				t.Fatal(err)
			}
			if !first.Changed || second.Changed {
				t.Errorf("changed = %v then %v, want true then false", first.Changed, second.Changed)
			}
			if second.Count != 1 {
				t.Errorf("count after repeat = %d", second.Count)
			}
			ix, _ := load(t, s, "u1", "t1")
			if ix.LikedTweetIDs.Len()+ix.RetweetedTweetIDs.Len() != 1 {
				t.Error("repeat call duplicated an id")
			}
			if len(rec.Notifications()) != 1 {
				t.Errorf("notifications = %d, want 1", len(rec.Notifications()))
			}
		})
	}
}

func TestUndoWithoutEdge(t *testing.T) {
	l, _, rec := setup(t, []string{"u1"}, "t1")
	res, err := l.Unlike(context.Background(), "u1", "t1")
	if err != nil {
		t.Fatalf("Unlike: %v", err)
	}
	if res.Changed || res.Count != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(rec.Notifications()) != 0 {
		t.Error("no-op should not notify")
	}
}

func TestNotFound(t *testing.T) {
	l, _, _ := setup(t, []string{"u1"}, "t1")
	ctx := context.Background()

	if _, err := l.Like(ctx, "u1", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing tweet: %v", err)
	}
	if _, err := l.Retweet(ctx, "nobody", "t1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing engagement index: %v", err)
	}
}

func TestConcurrentLikesAreNotLost(t *testing.T) {
	var users []string
	for i := 0; i < 10; i++ {
		users = append(users, fmt.Sprintf("u%d", i))
	}
	l, s, _ := setup(t, users, "t1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := store.RetryConflicts(ctx, 50, func() error {
				_, err := l.Like(ctx, id, "t1")
				return err
			})
			if err != nil {
				t.Errorf("Like %s: %v", id, err)
			}
		}(u)
	}
	wg.Wait()

	for _, u := range users {
		ix, tw := load(t, s, u, "t1")
		if !tw.LikerIDs.Has(u) || !ix.LikedTweetIDs.Has("t1") {
			t.Errorf("like by %s lost", u)
		}
	}
}

func TestConflictingLikeUnlike(t *testing.T) {
	l, s, _ := setup(t, []string{"u1"}, "t1")
	ctx := context.Background()

	// Interleave a commit between the read and commit of another write on
	// the same pair; the loser must see a conflict, not drop its edit.
	err := s.Update(ctx, func(tx *store.Tx) error {
		var tw models.Tweet
		if err := tx.Get(models.KindTweet, "t1", &tw); err != nil {
			return err
		}
		if _, err := l.Like(ctx, "u1", "t1"); err != nil {
			t.Fatalf("inner Like: %v", err)
		}
		tw.Text = "edited"
		return tx.Put(&tw)
	})
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("outer commit = %v, want conflict", err)
	}
	ix, tw := load(t, s, "u1", "t1")
	if !tw.LikerIDs.Has("u1") || !ix.LikedTweetIDs.Has("t1") {
		t.Error("committed like was overwritten")
	}
}
