// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package graph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
)

func setup(t *testing.T, handles ...string) (*Manager, *store.Store, *notify.Recorder) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	err = s.Update(context.Background(), func(tx *store.Tx) error {
		for i, h := range handles {
			u := &models.User{ID: h, Handle: h, Email: h + "@example.com", CreatedAt: time.Unix(int64(i), 0)}
			if err := tx.Put(u); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed users: %v", err)
	}

	rec := &notify.Recorder{}
	return New(s, rec), s, rec
}

func loadUser(t *testing.T, s *store.Store, id string) models.User {
	t.Helper()
	var u models.User
	if err := s.View(context.Background(), func(tx *store.Tx) error {
		return tx.Get(models.KindUser, id, &u)
	}); err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return u
}

func assertEdge(t *testing.T, s *store.Store, from, to string, want bool) {
	t.Helper()
	a, b := loadUser(t, s, from), loadUser(t, s, to)
	if got := a.Following.Has(to); got != want {
		t.Errorf("%s.following has %s = %v, want %v", from, to, got, want)
	}
	if got := b.Followers.Has(from); got != want {
		t.Errorf("%s.followers has %s = %v, want %v", to, from, got, want)
	}
}

func TestFollowSymmetry(t *testing.T) {
	m, s, rec := setup(t, "alice", "bobby")
	ctx := context.Background()

	if err := m.Follow(ctx, "alice", "bobby"); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	assertEdge(t, s, "alice", "bobby", true)
	assertEdge(t, s, "bobby", "alice", false)

	n, ok := rec.Last(notify.EventFollowersChanged)
	if !ok {
		t.Fatal("no FollowersChanged notification")
	}
	if n.Topic != "user_bobby" {
		t.Errorf("topic = %q", n.Topic)
	}
	if p := n.Payload.(notify.FollowersChanged); p.FollowerCount != 1 {
		t.Errorf("follower count = %d, want 1", p.FollowerCount)
	}

	if err := m.Unfollow(ctx, "alice", "bobby"); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	assertEdge(t, s, "alice", "bobby", false)
}

func TestFollowIdempotent(t *testing.T) {
	m, s, rec := setup(t, "alice", "bobby")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := m.Follow(ctx, "alice", "bobby"); err != nil {
			t.Fatalf("Follow #%d: %v", i+1, err)
		}
	}
	b := loadUser(t, s, "bobby")
	if b.Followers.Len() != 1 {
		t.Errorf("followers = %v, want exactly alice", b.Followers.IDs())
	}
	if got := len(rec.Notifications()); got != 1 {
		t.Errorf("notifications = %d, want 1 (repeat follow changes nothing)", got)
	}

	for i := 0; i < 2; i++ {
		if err := m.Unfollow(ctx, "alice", "bobby"); err != nil {
			t.Fatalf("Unfollow #%d: %v", i+1, err)
		}
	}
	assertEdge(t, s, "alice", "bobby", false)
}

func TestUnfollowWithoutEdge(t *testing.T) {
	m, _, rec := setup(t, "alice", "bobby")
	if err := m.Unfollow(context.Background(), "alice", "bobby"); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	if len(rec.Notifications()) != 0 {
		t.Error("no-op unfollow should not notify")
	}
}

func TestFollowErrors(t *testing.T) {
	m, s, _ := setup(t, "alice")
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  string
		target string
		want   error
	}{
		{"self", "alice", "alice", models.ErrSelfReference},
		{"missing target", "alice", "ghost", models.ErrNotFound},
		{"missing actor", "ghost", "alice", models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Follow(ctx, tt.actor, tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("Follow = %v, want %v", err, tt.want)
			}
		})
	}

	a := loadUser(t, s, "alice")
	if a.Following.Len() != 0 || a.Followers.Len() != 0 {
		t.Error("failed follows changed state")
	}
}

func TestFollowersAndFollowing(t *testing.T) {
	m, s, _ := setup(t, "zed_1", "amy_2", "carl", "dora")
	ctx := context.Background()

	for _, f := range []string{"zed_1", "amy_2", "dora"} {
		if err := m.Follow(ctx, f, "carl"); err != nil {
			t.Fatalf("Follow %s: %v", f, err)
		}
	}

	// a follower id that no longer resolves is skipped
	if err := s.Update(ctx, func(tx *store.Tx) error { return tx.Delete(models.KindUser, "dora") }); err != nil {
		t.Fatal(err)
	}

	followers, err := m.Followers(ctx, "carl")
	if err != nil {
		t.Fatalf("Followers: %v", err)
	}
	var handles []string
	for _, u := range followers {
		handles = append(handles, u.Handle)
	}
	if len(handles) != 2 || handles[0] != "amy_2" || handles[1] != "zed_1" {
		t.Errorf("followers = %v, want [amy_2 zed_1]", handles)
	}

	following, err := m.Following(ctx, "amy_2")
	if err != nil {
		t.Fatalf("Following: %v", err)
	}
	if len(following) != 1 || following[0].ID != "carl" {
		t.Errorf("following = %v", following)
	}

	ok, err := m.IsFollowing(ctx, "amy_2", "carl")
	if err != nil || !ok {
		t.Errorf("IsFollowing = %v, %v", ok, err)
	}

	if _, err := m.Followers(ctx, "ghost"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Followers(ghost) = %v", err)
	}
}

func TestConcurrentFollowsConverge(t *testing.T) {
	handles := []string{"target", "f_01", "f_02", "f_03", "f_04", "f_05", "f_06", "f_07", "f_08"}
	m, s, _ := setup(t, handles...)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, h := range handles[1:] {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := store.RetryConflicts(ctx, 50, func() error { return m.Follow(ctx, id, "target") })
			if err != nil {
				t.Errorf("Follow %s: %v", id, err)
			}
		}(h)
	}
	wg.Wait()

	target := loadUser(t, s, "target")
	if target.Followers.Len() != len(handles)-1 {
		t.Errorf("followers = %d, want %d (a write was lost)", target.Followers.Len(), len(handles)-1)
	}
	for _, h := range handles[1:] {
		assertEdge(t, s, h, "target", true)
	}
}
