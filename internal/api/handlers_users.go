// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"net/http"

	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/users"
)

// Me returns the authenticated user.
//
// @Summary Current user
// @Tags Users
// @Produce json
// @Success 200 {object} APIResponse{data=models.User}
// @Failure 401 {object} APIResponse
// @Router /me [get]
// @Security BearerAuth
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), actor(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// ListUsers pages through every user except the caller, oldest first.
//
// @Summary List users
// @Tags Users
// @Produce json
// @Param offset query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} APIResponse{data=[]models.User}
// @Router /users [get]
// @Security BearerAuth
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	offset, err := offsetParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := h.limitParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, total, err := h.Users.List(r.Context(), actor(r).ID, offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.User{}
	}
	NewResponseWriter(w, r).SuccessWithPagination(list, &PaginationMeta{
		Total:   total,
		Count:   len(list),
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+len(list) < total,
	})
}

// GetUser returns one user by id.
//
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} APIResponse{data=models.User}
// @Failure 404 {object} APIResponse
// @Router /users/{id} [get]
// @Security BearerAuth
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Get(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// GetUserByUsername resolves a handle, case-insensitively.
//
// @Summary Get user by username
// @Tags Users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} APIResponse{data=models.User}
// @Failure 404 {object} APIResponse
// @Router /users/by-username/{username} [get]
// @Security BearerAuth
func (h *Handler) GetUserByUsername(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetByHandle(r.Context(), param(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// UsernameAvailable reports whether ?username= is free.
//
// @Summary Check username availability
// @Tags Users
// @Produce json
// @Param username query string true "Username"
// @Success 200 {object} APIResponse
// @Router /users/username-available [get]
// @Security BearerAuth
func (h *Handler) UsernameAvailable(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("username")
	if handle == "" {
		writeError(w, r, models.NewValidation("username", "username is required"))
		return
	}
	free, err := h.Users.HandleAvailable(r.Context(), handle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{"username": handle, "available": free})
}

type usernameRequest struct {
	Username string `json:"username"`
}

// ChangeUsername renames the caller.
//
// @Summary Change username
// @Tags Users
// @Accept json
// @Produce json
// @Param body body usernameRequest true "New username"
// @Success 200 {object} APIResponse{data=models.User}
// @Failure 400 {object} APIResponse
// @Router /me/username [put]
// @Security BearerAuth
func (h *Handler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var u *models.User
	err := h.retry(r.Context(), func() error {
		var err error
		u, err = h.Users.ChangeUsername(r.Context(), actor(r).ID, req.Username)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// UpdateProfile applies a partial profile change.
//
// @Summary Update profile
// @Tags Users
// @Accept json
// @Produce json
// @Param body body users.ProfilePatch true "Fields to change"
// @Success 200 {object} APIResponse{data=models.User}
// @Failure 400 {object} APIResponse
// @Router /me/profile [put]
// @Security BearerAuth
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch users.ProfilePatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	var u *models.User
	err := h.retry(r.Context(), func() error {
		var err error
		u, err = h.Users.UpdateProfile(r.Context(), actor(r).ID, patch)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// PinTweet pins one of the caller's tweets to their profile.
//
// @Summary Pin tweet
// @Tags Users
// @Produce json
// @Param tweetId path string true "Tweet ID"
// @Success 200 {object} APIResponse{data=models.User}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /me/pin/{tweetId} [put]
// @Security BearerAuth
func (h *Handler) PinTweet(w http.ResponseWriter, r *http.Request) {
	var u *models.User
	err := h.retry(r.Context(), func() error {
		var err error
		u, err = h.Users.PinTweet(r.Context(), actor(r).ID, param(r, "tweetId"))
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}

// UnpinTweet clears the caller's pinned tweet.
//
// @Summary Unpin tweet
// @Tags Users
// @Produce json
// @Success 200 {object} APIResponse{data=models.User}
// @Router /me/pin [delete]
// @Security BearerAuth
func (h *Handler) UnpinTweet(w http.ResponseWriter, r *http.Request) {
	var u *models.User
	err := h.retry(r.Context(), func() error {
		var err error
		u, err = h.Users.UnpinTweet(r.Context(), actor(r).ID)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(u)
}
