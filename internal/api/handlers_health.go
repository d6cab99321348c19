// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"context"
	"net/http"
	"time"
)

type liveness struct {
	Alive  bool   `json:"alive"`
	Uptime string `json:"uptime"`
}

type readiness struct {
	Ready     bool   `json:"ready"`
	Store     string `json:"store"`
	WSClients int    `json:"wsClients"`
}

// HealthLive reports that the process is serving.
//
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(liveness{
		Alive:  true,
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	})
}

// HealthReady reports whether the store answers reads.
//
// @Summary Readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 503 {object} APIResponse
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := readiness{Ready: true, Store: "ok"}
	if h.Hub != nil {
		out.WSClients = h.Hub.ClientCount()
	}
	if err := h.Store.Ping(ctx); err != nil {
		out.Ready = false
		out.Store = err.Error()
		rw := NewResponseWriter(w, r)
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    out,
			Error:   &APIError{Code: ErrCodeServiceUnavailable, Message: "store unavailable"},
			Meta:    rw.meta(nil),
		})
		return
	}
	NewResponseWriter(w, r).Success(out)
}
