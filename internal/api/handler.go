// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/warbler/internal/auth"
	"github.com/tomtom215/warbler/internal/bookmarks"
	"github.com/tomtom215/warbler/internal/config"
	"github.com/tomtom215/warbler/internal/engagement"
	"github.com/tomtom215/warbler/internal/graph"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/store"
	"github.com/tomtom215/warbler/internal/sweep"
	"github.com/tomtom215/warbler/internal/timeline"
	"github.com/tomtom215/warbler/internal/tweets"
	"github.com/tomtom215/warbler/internal/users"
	"github.com/tomtom215/warbler/internal/websocket"
)

// maxBodyBytes bounds request bodies. Tweets carry image URLs, not images.
const maxBodyBytes = 64 << 10

// Deps are the services the handlers call.
type Deps struct {
	Store     *store.Store
	Users     *users.Service
	Graph     *graph.Manager
	Ledger    *engagement.Ledger
	Tweets    *tweets.Coordinator
	Timeline  *timeline.Engine
	Bookmarks *bookmarks.Service
	Sweeper   *sweep.Sweeper
	Hub       *websocket.Hub
}

// Handler implements every route.
type Handler struct {
	Deps
	api       config.APIConfig
	retries   int
	origins   []string
	startTime time.Time
}

// NewHandler creates a Handler. retries is store.conflict_retries.
func NewHandler(deps Deps, cfg *config.Config) *Handler {
	return &Handler{
		Deps:      deps,
		api:       cfg.API,
		retries:   cfg.Store.ConflictRetries,
		origins:   cfg.Security.CORSOrigins,
		startTime: time.Now(),
	}
}

// retry runs a mutation, retrying it whole on a write conflict.
func (h *Handler) retry(ctx context.Context, fn func() error) error {
	return store.RetryConflicts(ctx, h.retries, fn)
}

// actor is set by auth.Middleware on every /api/v1 route except health.
func actor(r *http.Request) models.Actor {
	a, _ := auth.ActorFromContext(r.Context())
	return a
}

var errEmptyBody = errors.New("request body is required")

// decodeBody reads a JSON object into v. Unknown fields are rejected so that
// typos in profile patches do not silently no-op.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return models.NewValidation("body", errEmptyBody.Error())
		}
		return models.NewValidation("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// limitParam reads ?limit=, defaulting to api.default_page_size and capped
// at api.max_page_size.
func (h *Handler) limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.api.DefaultPageSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, models.NewValidation("limit", "limit must be a positive integer")
	}
	if n > h.api.MaxPageSize {
		n = h.api.MaxPageSize
	}
	return n, nil
}

func offsetParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("offset")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.NewValidation("offset", "offset must be a non-negative integer")
	}
	return n, nil
}

// pageQuery builds a timeline query from ?before=<cursor> and ?limit=.
func (h *Handler) pageQuery(r *http.Request) (timeline.Query, error) {
	limit, err := h.limitParam(r)
	if err != nil {
		return timeline.Query{}, err
	}
	q := timeline.Query{Limit: limit}
	if raw := r.URL.Query().Get("before"); raw != "" {
		return q.WithCursor(raw)
	}
	return q, nil
}

func boolParam(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// writePage answers a timeline page with its continuation cursor.
func writePage(w http.ResponseWriter, r *http.Request, page []*models.TweetView, limit int) {
	if page == nil {
		page = []*models.TweetView{}
	}
	meta := &PaginationMeta{Count: len(page), Limit: limit, HasMore: len(page) == limit}
	if meta.HasMore {
		meta.NextCursor = timeline.NextCursor(page)
	}
	NewResponseWriter(w, r).SuccessWithPagination(page, meta)
}

func param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
