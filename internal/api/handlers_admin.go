// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"net/http"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/sweep"
)

type sweepReport struct {
	sweep.Stats
	Failed []*sweep.Entry `json:"failedEntries"`
}

// SweepStatus reports cascade sweep journal counts and the entries that
// ran out of attempts.
//
// @Summary Sweep journal status
// @Tags Admin
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 403 {object} APIResponse
// @Router /admin/sweeps [get]
// @Security BearerAuth
func (h *Handler) SweepStatus(w http.ResponseWriter, r *http.Request) {
	st, err := sweep.GetStats(r.Context(), h.Store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	failed, err := sweep.Failed(r.Context(), h.Store)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if failed == nil {
		failed = []*sweep.Entry{}
	}
	NewResponseWriter(w, r).Success(sweepReport{Stats: st, Failed: failed})
}

// RequeueSweep moves a failed sweep back to pending and runs it once.
//
// @Summary Requeue failed sweep
// @Tags Admin
// @Produce json
// @Param tweetId path string true "Deleted tweet ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /admin/sweeps/{tweetId}/requeue [post]
// @Security BearerAuth
func (h *Handler) RequeueSweep(w http.ResponseWriter, r *http.Request) {
	tweetID := param(r, "tweetId")
	if err := sweep.Requeue(r.Context(), h.Store, tweetID); err != nil {
		writeError(w, r, err)
		return
	}

	ran := true
	if err := h.Sweeper.Process(r.Context(), tweetID); err != nil {
		// still pending; the retry loop picks it up
		ran = false
		logging.Ctx(r.Context()).Warn().Err(err).Str("tweet_id", tweetID).Msg("Requeued sweep did not finish")
	}
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"tweetId":   tweetID,
		"requeued":  true,
		"completed": ran,
	})
}
