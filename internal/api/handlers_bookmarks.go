// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"net/http"

	"github.com/tomtom215/warbler/internal/models"
)

type bookmarkRemoval struct {
	TweetID string `json:"tweetId"`
	Removed bool   `json:"removed"`
}

type bookmarkClear struct {
	Count int `json:"count"`
}

// ListBookmarks lists the caller's bookmarks, newest first.
//
// @Summary List bookmarks
// @Tags Bookmarks
// @Produce json
// @Param limit query int false "Maximum bookmarks"
// @Success 200 {object} APIResponse{data=[]models.BookmarkView}
// @Router /bookmarks [get]
// @Security BearerAuth
func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	limit, err := h.limitParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.Bookmarks.List(r.Context(), actor(r).ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.BookmarkView{}
	}
	NewResponseWriter(w, r).SuccessWithPagination(list, &PaginationMeta{
		Count:   len(list),
		Limit:   limit,
		HasMore: len(list) == limit,
	})
}

// AddBookmark bookmarks {tweetId}. A repeat answers 200 with the
// existing bookmark.
//
// @Summary Add bookmark
// @Tags Bookmarks
// @Produce json
// @Param tweetId path string true "Tweet ID"
// @Success 200 {object} APIResponse{data=models.Bookmark} "Already bookmarked"
// @Success 201 {object} APIResponse{data=models.Bookmark}
// @Failure 404 {object} APIResponse
// @Router /bookmarks/{tweetId} [post]
// @Security BearerAuth
func (h *Handler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	var (
		b       *models.Bookmark
		created bool
	)
	err := h.retry(r.Context(), func() error {
		var err error
		b, created, err = h.Bookmarks.Add(r.Context(), actor(r).ID, param(r, "tweetId"))
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	rw := NewResponseWriter(w, r)
	if created {
		rw.Created(b)
		return
	}
	rw.Success(b)
}

// RemoveBookmark removes the caller's bookmark of {tweetId}, if any.
//
// @Summary Remove bookmark
// @Tags Bookmarks
// @Produce json
// @Param tweetId path string true "Tweet ID"
// @Success 200 {object} APIResponse
// @Router /bookmarks/{tweetId} [delete]
// @Security BearerAuth
func (h *Handler) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	tweetID := param(r, "tweetId")
	var removed bool
	err := h.retry(r.Context(), func() error {
		var err error
		removed, err = h.Bookmarks.Remove(r.Context(), actor(r).ID, tweetID)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(bookmarkRemoval{TweetID: tweetID, Removed: removed})
}

// ClearBookmarks removes every bookmark the caller holds.
//
// @Summary Clear bookmarks
// @Tags Bookmarks
// @Produce json
// @Success 200 {object} APIResponse
// @Router /bookmarks [delete]
// @Security BearerAuth
func (h *Handler) ClearBookmarks(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.retry(r.Context(), func() error {
		var err error
		n, err = h.Bookmarks.Clear(r.Context(), actor(r).ID)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(bookmarkClear{Count: n})
}
