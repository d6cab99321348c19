// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
)

func newService(t *testing.T) (*Service, *store.Store, *notify.Recorder) {
	t.Helper()
	s, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	rec := &notify.Recorder{}
	return New(s, rec), s, rec
}

// fixedSuffixes makes handle generation return the given numbers in order,
// repeating the last one.
func fixedSuffixes(svc *Service, nums ...int) {
	var mu sync.Mutex
	i := 0
	svc.handles.suffix = func() int {
		mu.Lock()
		defer mu.Unlock()
		n := nums[i]
		if i < len(nums)-1 {
			i++
		}
		return n
	}
}

func register(t *testing.T, svc *Service, email, name string) *models.User {
	t.Helper()
	u, _, err := svc.Register(context.Background(), Identity{Email: email, Name: name})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return u
}

func TestRegisterCreatesUserAndIndex(t *testing.T) {
	svc, s, _ := newService(t)
	fixedSuffixes(svc, 4242)

	u, created, err := svc.Register(context.Background(), Identity{Email: "Ada@Example.com", Name: "Ada L."})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !created {
		t.Error("first registration should create")
	}
	if u.Handle != "adal4242" {
		t.Errorf("handle = %q, want adal4242", u.Handle)
	}

	err = s.View(context.Background(), func(tx *store.Tx) error {
		ok, err := tx.Exists(models.KindEngagement, u.ID)
		if err == nil && !ok {
			t.Error("engagement index missing")
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	again, created, err := svc.Register(context.Background(), Identity{Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if created || again.ID != u.ID {
		t.Errorf("second login created=%v id=%s, want existing %s", created, again.ID, u.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newService(t)
	for _, email := range []string{"", "   ", "not-an-email"} {
		_, _, err := svc.Register(context.Background(), Identity{Email: email})
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("Register(%q) = %v, want validation error", email, err)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		id   Identity
		want string
	}{
		{Identity{Name: "Grace Hopper"}, "GraceHopper"},
		{Identity{Email: "j.doe@example.com"}, "jdoe"},
		{Identity{Name: "42 is it"}, "u42isit"},
		{Identity{Name: "!!!", Email: "x@y.z"}, "user"},
		{Identity{Name: "_under"}, "u_under"},
	}
	for _, tt := range tests {
		if got := baseName(tt.id); got != tt.want {
			t.Errorf("baseName(%+v) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestHandleGeneration(t *testing.T) {
	svc, _, _ := newService(t)

	// the second user collides once, then gets the next number
	fixedSuffixes(svc, 1111, 1111, 2222)
	a := register(t, svc, "a@example.com", "sam")
	b := register(t, svc, "b@example.com", "sam")
	if a.Handle != "sam1111" || b.Handle != "sam2222" {
		t.Errorf("handles = %q, %q", a.Handle, b.Handle)
	}

	// long names are cut to the maximum
	fixedSuffixes(svc, 9999)
	c := register(t, svc, "c@example.com", "averyveryverylongname")
	if len(c.Handle) != models.HandleMaxLength {
		t.Errorf("handle %q has length %d", c.Handle, len(c.Handle))
	}

	// every numbered candidate taken: fall back to hex
	fixedSuffixes(svc, 1111)
	d := register(t, svc, "d@example.com", "sam")
	if d.Handle == "sam1111" || !strings.HasPrefix(d.Handle, "sam") {
		t.Errorf("fallback handle = %q", d.Handle)
	}
}

func TestGetByHandleIgnoresCase(t *testing.T) {
	svc, _, _ := newService(t)
	fixedSuffixes(svc, 1234)
	u := register(t, svc, "k@example.com", "Kay")

	got, err := svc.GetByHandle(context.Background(), "KAY1234")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByHandle = %v, %v", got, err)
	}
	if _, err := svc.GetByHandle(context.Background(), "nobody"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing handle = %v", err)
	}
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing id = %v", err)
	}
}

func TestChangeUsername(t *testing.T) {
	svc, _, rec := newService(t)
	fixedSuffixes(svc, 1000, 2000)
	a := register(t, svc, "a@example.com", "alice")
	b := register(t, svc, "b@example.com", "bob")

	tests := []struct {
		name   string
		handle string
		ok     bool
	}{
		{"too short", "abc", false},
		{"too long", "abcdefghijklmnop", false},
		{"bad chars", "al-ice", false},
		{"digits only", "123456", false},
		{"same as current", "ALICE1000", false},
		{"taken ignoring case", "Bob2000", false},
		{"valid", "alice_w", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := svc.ChangeUsername(context.Background(), a.ID, tt.handle)
			if tt.ok {
				if err != nil || u.Handle != tt.handle {
					t.Fatalf("ChangeUsername = %v, %v", u, err)
				}
				return
			}
			if !errors.Is(err, models.ErrValidation) {
				t.Errorf("ChangeUsername(%q) = %v, want validation error", tt.handle, err)
			}
		})
	}

	// the old handle is released and the new one resolves
	free, err := svc.HandleAvailable(context.Background(), "alice1000")
	if err != nil || !free {
		t.Errorf("old handle available = %v, %v", free, err)
	}
	if got, err := svc.GetByHandle(context.Background(), "alice_w"); err != nil || got.ID != a.ID {
		t.Errorf("new handle lookup = %v, %v", got, err)
	}
	if free, _ := svc.HandleAvailable(context.Background(), b.Handle); free {
		t.Error("bob's handle reported available")
	}

	if n, ok := rec.Last(notify.EventUserUpdated); !ok || n.Topic != notify.UserTopic(a.ID) {
		t.Errorf("notification = %+v, %v", n, ok)
	}
}

func ptr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	svc, _, rec := newService(t)
	u := register(t, svc, "p@example.com", "Pat")

	got, err := svc.UpdateProfile(context.Background(), u.ID, ProfilePatch{
		Name:     ptr("Pat Q"),
		Bio:      ptr("hello"),
		Location: ptr("Oslo"),
		Theme:    ptr("dark"),
		Accent:   ptr("pink"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != "Pat Q" || got.Bio != "hello" || got.Location != "Oslo" || got.Theme != "dark" || got.Accent != "pink" {
		t.Errorf("profile = %+v", got)
	}

	// empty name is ignored, whitespace bio clears, nil location is kept
	got, err = svc.UpdateProfile(context.Background(), u.ID, ProfilePatch{Name: ptr(""), Bio: ptr("  ")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != "Pat Q" || got.Bio != "" || got.Location != "Oslo" {
		t.Errorf("profile after clear = %+v", got)
	}
	if _, ok := rec.Last(notify.EventUserUpdated); !ok {
		t.Error("no UserUpdated notification")
	}

	bad := []ProfilePatch{
		{Bio: ptr(strings.Repeat("b", models.BioMaxLength+1))},
		{Theme: ptr("neon")},
		{Accent: ptr("teal")},
		{Name: ptr(strings.Repeat("n", models.NameMaxLength+1))},
	}
	for i, p := range bad {
		if _, err := svc.UpdateProfile(context.Background(), u.ID, p); !errors.Is(err, models.ErrValidation) {
			t.Errorf("bad patch %d: err = %v", i, err)
		}
	}

	if _, err := svc.UpdateProfile(context.Background(), "ghost", ProfilePatch{}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing user = %v", err)
	}
}

func TestPinTweet(t *testing.T) {
	svc, s, _ := newService(t)
	a := register(t, svc, "a@example.com", "alice")
	b := register(t, svc, "b@example.com", "bob")

	err := s.Update(context.Background(), func(tx *store.Tx) error {
		return tx.Put(&models.Tweet{ID: "t1", AuthorID: a.ID, Text: "hi", CreatedAt: time.Now()})
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.PinTweet(context.Background(), b.ID, "t1"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("pin someone else's tweet = %v", err)
	}
	if _, err := svc.PinTweet(context.Background(), a.ID, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("pin missing tweet = %v", err)
	}
	u, err := svc.PinTweet(context.Background(), a.ID, "t1")
	if err != nil || u.PinnedTweetID != "t1" {
		t.Fatalf("PinTweet = %v, %v", u, err)
	}
	u, err = svc.UnpinTweet(context.Background(), a.ID)
	if err != nil || u.PinnedTweetID != "" {
		t.Fatalf("UnpinTweet = %v, %v", u, err)
	}
}

func TestList(t *testing.T) {
	svc, _, _ := newService(t)
	var ids []string
	for i := 0; i < 5; i++ {
		u := register(t, svc, fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("user%d", i))
		ids = append(ids, u.ID)
		time.Sleep(time.Millisecond)
	}

	page, total, err := svc.List(context.Background(), ids[0], 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if len(page) != 2 || page[0].ID != ids[2] || page[1].ID != ids[3] {
		t.Errorf("page = %v", page)
	}

	page, _, err = svc.List(context.Background(), "", 4, 10)
	if err != nil || len(page) != 1 || page[0].ID != ids[4] {
		t.Errorf("last page = %v, %v", page, err)
	}

	if _, _, err := svc.List(context.Background(), "", 0, 0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("zero limit = %v", err)
	}
}

func TestConcurrentRegisterSameEmail(t *testing.T) {
	svc, _, _ := newService(t)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.RetryConflicts(context.Background(), 20, func() error {
				u, _, err := svc.Register(context.Background(), Identity{Email: "same@example.com"})
				if err == nil {
					ids[i] = u.ID
				}
				return err
			})
			if err != nil {
				t.Errorf("Register: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("registrations diverged: %v", ids)
		}
	}
}
