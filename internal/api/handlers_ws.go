// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/warbler/internal/logging"
)

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkOrigin admits browsers from the configured CORS origins. Requests
// without an Origin header are only admitted under a wildcard.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.origins {
		if allowed == "*" || (origin != "" && allowed == origin) {
			return true
		}
	}
	logging.Ctx(r.Context()).Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and attaches it to the hub. Clients
// then send subscribe and unsubscribe messages for topics.
//
// @Summary Real-time notifications
// @Tags Realtime
// @Param access_token query string false "Bearer token for browsers that cannot set headers"
// @Success 101
// @Failure 503 {object} APIResponse
// @Router /ws [get]
// @Security BearerAuth
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable")
		return
	}

	up := h.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	if h.Hub.Attach(conn, actor(r).ID) == nil {
		logging.Ctx(r.Context()).Debug().Msg("WebSocket attached after hub shutdown")
	}
}
