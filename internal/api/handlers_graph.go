// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/warbler/internal/models"
)

type followState struct {
	UserID    string `json:"userId"`
	Following bool   `json:"following"`
}

// Follow makes the caller follow {id}.
//
// @Summary Follow user
// @Tags Graph
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "Self follow"
// @Failure 404 {object} APIResponse
// @Router /users/{id}/follow [post]
// @Security BearerAuth
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	h.editFollow(w, r, true)
}

// Unfollow removes the caller's follow of {id}.
//
// @Summary Unfollow user
// @Tags Graph
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} APIResponse
// @Router /users/{id}/follow [delete]
// @Security BearerAuth
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.editFollow(w, r, false)
}

func (h *Handler) editFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	target := param(r, "id")
	op := h.Graph.Unfollow
	if follow {
		op = h.Graph.Follow
	}
	err := h.retry(r.Context(), func() error {
		return op(r.Context(), actor(r).ID, target)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(followState{UserID: target, Following: follow})
}

// Followers lists the users following {id}.
//
// @Summary Followers
// @Tags Graph
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} APIResponse{data=[]models.User}
// @Failure 404 {object} APIResponse
// @Router /users/{id}/followers [get]
// @Security BearerAuth
func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listGraph(w, r, h.Graph.Followers)
}

// Following lists the users {id} follows.
//
// @Summary Following
// @Tags Graph
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} APIResponse{data=[]models.User}
// @Failure 404 {object} APIResponse
// @Router /users/{id}/following [get]
// @Security BearerAuth
func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.listGraph(w, r, h.Graph.Following)
}

func (h *Handler) listGraph(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]*models.User, error)) {
	out, err := list(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []*models.User{}
	}
	NewResponseWriter(w, r).Success(out)
}

// FollowStatus reports whether the caller follows {id}.
//
// @Summary Follow status
// @Tags Graph
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} APIResponse
// @Router /users/{id}/follow [get]
// @Security BearerAuth
func (h *Handler) FollowStatus(w http.ResponseWriter, r *http.Request) {
	target := param(r, "id")
	ok, err := h.Graph.IsFollowing(r.Context(), actor(r).ID, target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(followState{UserID: target, Following: ok})
}
