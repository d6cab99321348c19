// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/warbler/internal/logging"
)

// AccessLog logs one line per request. Requests slower than slow, and
// server errors, are logged at warn; everything else at debug.
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			took := time.Since(start)
			status := statusOf(ww)

			var ev *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				ev = logging.Ctx(r.Context()).Warn()
			case slow > 0 && took > slow:
				ev = logging.Ctx(r.Context()).Warn().Bool("slow", true)
			default:
				ev = logging.Ctx(r.Context()).Debug()
			}
			ev.Str("method", r.Method).
				Str("route", routeLabel(r)).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("took", took).
				Msg("HTTP request")
		})
	}
}
