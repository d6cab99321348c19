// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package authz

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/warbler/internal/auth"
)

func newEnforcer(t *testing.T, cfg EnforcerConfig) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(cfg)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	return e
}

func TestEmbeddedPolicy(t *testing.T) {
	e := newEnforcer(t, DefaultEnforcerConfig())

	tests := []struct {
		role, object, action string
		want                 bool
	}{
		{"user", ObjectTweet, "create", true},
		{"user", ObjectTweet, ActionModerate, false},
		{"user", ObjectSweep, ActionManage, false},
		{"admin", ObjectTweet, ActionModerate, true},
		{"admin", ObjectTweet, "create", true},
		{"admin", ObjectSweep, ActionManage, true},
		{"", ObjectTweet, "create", true},
		{"", ObjectTweet, ActionModerate, false},
		{"stranger", ObjectTweet, "create", false},
	}
	for _, tt := range tests {
		got, err := e.Enforce(tt.role, tt.object, tt.action)
		if err != nil {
			t.Fatalf("Enforce(%q, %q, %q): %v", tt.role, tt.object, tt.action, err)
		}
		if got != tt.want {
			t.Errorf("Enforce(%q, %q, %q) = %v, want %v", tt.role, tt.object, tt.action, got, tt.want)
		}
	}

	if !e.Privileged("admin") || e.Privileged("user") {
		t.Error("only admin should be privileged")
	}

	roles, err := e.RolesFor("admin")
	if err != nil || len(roles) != 1 || roles[0] != "user" {
		t.Errorf("RolesFor(admin) = %v, %v", roles, err)
	}
}

func TestPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.csv")
	if err := os.WriteFile(path, []byte("p, editor, tweet, moderate\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	e := newEnforcer(t, EnforcerConfig{PolicyPath: path})
	if !e.Privileged("editor") {
		t.Error("editor should be privileged by the file policy")
	}
	if e.Privileged("admin") {
		t.Error("embedded policy should not apply when a file is given")
	}
}

func TestMissingPolicyFileFallsBack(t *testing.T) {
	e := newEnforcer(t, EnforcerConfig{PolicyPath: filepath.Join(t.TempDir(), "absent.csv")})
	if !e.Privileged("admin") {
		t.Error("embedded policy should be used")
	}
}

func TestLoadPolicyTextRejectsMalformedLines(t *testing.T) {
	e := newEnforcer(t, EnforcerConfig{})
	if err := loadPolicyText(e.enforcer, "p, only-two\n"); err == nil {
		t.Error("malformed line accepted")
	}
}

func TestDecisionCache(t *testing.T) {
	c := newDecisionCache(time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	if _, ok := c.get("user", "tweet", "create"); ok {
		t.Fatal("empty cache hit")
	}
	c.set("user", "tweet", "create", true)
	if allowed, ok := c.get("user", "tweet", "create"); !ok || !allowed {
		t.Errorf("get = %v, %v", allowed, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.get("user", "tweet", "create"); ok {
		t.Error("expired entry returned")
	}
}

func TestRequire(t *testing.T) {
	e := newEnforcer(t, DefaultEnforcerConfig())
	mw := NewMiddleware(e, nil)
	h := mw.Require(ObjectSweep, ActionManage)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		role string
		set  bool
		want int
	}{
		{"admin", "admin", true, http.StatusNoContent},
		{"user", "user", true, http.StatusForbidden},
		{"unauthenticated", "", false, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.set {
				req = req.WithContext(auth.ContextWithRole(req.Context(), tt.role))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
