// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"net/http"

	"github.com/tomtom215/warbler/internal/engagement"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/tweets"
)

// GlobalTimeline lists root tweets, newest first.
//
// @Summary Global timeline
// @Tags Tweets
// @Produce json
// @Param before query string false "Cursor from meta.pagination.next_cursor, or an RFC 3339 timestamp"
// @Param limit query int false "Page size"
// @Success 200 {object} APIResponse{data=[]models.TweetView}
// @Router /tweets [get]
// @Security BearerAuth
func (h *Handler) GlobalTimeline(w http.ResponseWriter, r *http.Request) {
	q, err := h.pageQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Timeline.Global(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, page, q.Limit)
}

// CreateTweet posts a tweet or, with parentId, a reply.
//
// @Summary Create tweet
// @Tags Tweets
// @Accept json
// @Produce json
// @Param body body tweets.Content true "Tweet"
// @Success 201 {object} APIResponse{data=models.Tweet}
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse "Parent not found"
// @Router /tweets [post]
// @Security BearerAuth
func (h *Handler) CreateTweet(w http.ResponseWriter, r *http.Request) {
	var content tweets.Content
	if err := decodeBody(r, &content); err != nil {
		writeError(w, r, err)
		return
	}

	var tw *models.Tweet
	err := h.retry(r.Context(), func() error {
		var err error
		tw, err = h.Tweets.Create(r.Context(), actor(r), content)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(tw)
}

// GetTweet returns one tweet with its author.
//
// @Summary Get tweet
// @Tags Tweets
// @Produce json
// @Param id path string true "Tweet ID"
// @Success 200 {object} APIResponse{data=models.TweetView}
// @Failure 404 {object} APIResponse
// @Router /tweets/{id} [get]
// @Security BearerAuth
func (h *Handler) GetTweet(w http.ResponseWriter, r *http.Request) {
	tv, err := h.Tweets.Get(r.Context(), param(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(tv)
}

// DeleteTweet deletes a tweet the caller wrote, or any tweet for a
// moderator.
//
// @Summary Delete tweet
// @Tags Tweets
// @Produce json
// @Param id path string true "Tweet ID"
// @Success 200 {object} APIResponse{data=tweets.DeleteOutcome}
// @Failure 403 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /tweets/{id} [delete]
// @Security BearerAuth
func (h *Handler) DeleteTweet(w http.ResponseWriter, r *http.Request) {
	var out tweets.DeleteOutcome
	err := h.retry(r.Context(), func() error {
		var err error
		out, err = h.Tweets.Delete(r.Context(), actor(r), param(r, "id"))
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !out.Deleted {
		writeDeclined(w, r, out.Reason)
		return
	}
	NewResponseWriter(w, r).Success(out)
}

// Replies lists direct replies to {id}.
//
// @Summary Replies
// @Tags Tweets
// @Produce json
// @Param id path string true "Tweet ID"
// @Param before query string false "Cursor from meta.pagination.next_cursor, or an RFC 3339 timestamp"
// @Param limit query int false "Page size"
// @Success 200 {object} APIResponse{data=[]models.TweetView}
// @Router /tweets/{id}/replies [get]
// @Security BearerAuth
func (h *Handler) Replies(w http.ResponseWriter, r *http.Request) {
	q, err := h.pageQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Timeline.Replies(r.Context(), param(r, "id"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, page, q.Limit)
}

// Like, Unlike, Retweet and Unretweet edit the caller's engagement edge.
//
// @Summary Like tweet
// @Tags Engagement
// @Produce json
// @Param id path string true "Tweet ID"
// @Success 200 {object} APIResponse{data=engagement.Result}
// @Failure 404 {object} APIResponse
// @Router /tweets/{id}/like [post]
// @Security BearerAuth
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	h.engage(w, r, engagement.Like, true)
}

// Unlike removes a like.
//
// @Summary Unlike tweet
// @Tags Engagement
// @Produce json
// @Param id path string true "Tweet ID"
// @Success 200 {object} APIResponse{data=engagement.Result}
// @Router /tweets/{id}/like [delete]
// @Security BearerAuth
func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.engage(w, r, engagement.Like, false)
}

// Retweet adds a retweet.
//
// @Summary Retweet
// @Tags Engagement
// @Produce json
// @Param id path string true "Tweet ID"
// @Success 200 {object} APIResponse{data=engagement.Result}
// @Router /tweets/{id}/retweet [post]
// @Security BearerAuth
func (h *Handler) Retweet(w http.ResponseWriter, r *http.Request) {
	h.engage(w, r, engagement.Retweet, true)
}

// Unretweet removes a retweet.
//
// @Summary Unretweet
// @Tags Engagement
// @Produce json
// @Param id path string true "Tweet ID"
// @Success 200 {object} APIResponse{data=engagement.Result}
// @Router /tweets/{id}/retweet [delete]
// @Security BearerAuth
func (h *Handler) Unretweet(w http.ResponseWriter, r *http.Request) {
	h.engage(w, r, engagement.Retweet, false)
}

func (h *Handler) engage(w http.ResponseWriter, r *http.Request, kind engagement.Kind, active bool) {
	var res engagement.Result
	err := h.retry(r.Context(), func() error {
		var err error
		res, err = h.Ledger.Set(r.Context(), kind, actor(r).ID, param(r, "id"), active)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(res)
}

// UserTweets lists {id}'s tweets; replies only with include_replies=true.
//
// @Summary User tweets
// @Tags Timelines
// @Produce json
// @Param id path string true "User ID"
// @Param include_replies query bool false "Include replies"
// @Param before query string false "Cursor from meta.pagination.next_cursor, or an RFC 3339 timestamp"
// @Param limit query int false "Page size"
// @Success 200 {object} APIResponse{data=[]models.TweetView}
// @Router /users/{id}/tweets [get]
// @Security BearerAuth
func (h *Handler) UserTweets(w http.ResponseWriter, r *http.Request) {
	q, err := h.pageQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Timeline.UserTweets(r.Context(), param(r, "id"), boolParam(r, "include_replies"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, page, q.Limit)
}

// UserMedia lists {id}'s tweets that carry images.
//
// @Summary User media
// @Tags Timelines
// @Produce json
// @Param id path string true "User ID"
// @Param before query string false "Cursor from meta.pagination.next_cursor, or an RFC 3339 timestamp"
// @Param limit query int false "Page size"
// @Success 200 {object} APIResponse{data=[]models.TweetView}
// @Router /users/{id}/media [get]
// @Security BearerAuth
func (h *Handler) UserMedia(w http.ResponseWriter, r *http.Request) {
	q, err := h.pageQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Timeline.UserMedia(r.Context(), param(r, "id"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, page, q.Limit)
}

// UserLikes lists the tweets {id} liked.
//
// @Summary User likes
// @Tags Timelines
// @Produce json
// @Param id path string true "User ID"
// @Param before query string false "Cursor from meta.pagination.next_cursor, or an RFC 3339 timestamp"
// @Param limit query int false "Page size"
// @Success 200 {object} APIResponse{data=[]models.TweetView}
// @Failure 404 {object} APIResponse
// @Router /users/{id}/likes [get]
// @Security BearerAuth
func (h *Handler) UserLikes(w http.ResponseWriter, r *http.Request) {
	q, err := h.pageQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Timeline.UserLikes(r.Context(), param(r, "id"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, r, page, q.Limit)
}
