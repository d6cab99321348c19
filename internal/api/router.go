// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/warbler/internal/auth"
	"github.com/tomtom215/warbler/internal/authz"
	"github.com/tomtom215/warbler/internal/middleware"
)

// slowRequest is the access log warning threshold.
const slowRequest = time.Second

// Router wires handlers to paths.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(handler *Handler, authn *auth.Middleware, az *authz.Middleware, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, authn: authn, authz: az, chiMiddleware: mw}
}

// AuthError answers authentication failures. Pass it to auth.NewMiddleware.
func AuthError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err)
}

// Forbidden answers authorization denials. Pass it to authz.NewMiddleware.
func Forbidden(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Forbidden("insufficient privileges")
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog(slowRequest))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(router.authn.Authenticate)

		r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", h.WebSocket)

		r.Get("/me", h.Me)
		r.Put("/me/profile", h.UpdateProfile)
		r.Put("/me/username", h.ChangeUsername)
		r.Put("/me/pin/{tweetId}", h.PinTweet)
		r.Delete("/me/pin", h.UnpinTweet)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Get("/username-available", h.UsernameAvailable)
			r.Get("/by-username/{username}", h.GetUserByUsername)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Get("/follow", h.FollowStatus)
				r.Post("/follow", h.Follow)
				r.Delete("/follow", h.Unfollow)
				r.Get("/followers", h.Followers)
				r.Get("/following", h.Following)
				r.Get("/tweets", h.UserTweets)
				r.Get("/media", h.UserMedia)
				r.Get("/likes", h.UserLikes)
			})
		})

		r.Route("/tweets", func(r chi.Router) {
			r.Get("/", h.GlobalTimeline)
			r.With(router.chiMiddleware.RateLimitWrite()).Post("/", h.CreateTweet)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTweet)
				r.Delete("/", h.DeleteTweet)
				r.Get("/replies", h.Replies)
				r.Post("/like", h.Like)
				r.Delete("/like", h.Unlike)
				r.Post("/retweet", h.Retweet)
				r.Delete("/retweet", h.Unretweet)
			})
		})

		r.Route("/bookmarks", func(r chi.Router) {
			r.Get("/", h.ListBookmarks)
			r.Delete("/", h.ClearBookmarks)
			r.Post("/{tweetId}", h.AddBookmark)
			r.Delete("/{tweetId}", h.RemoveBookmark)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(router.authz.Require(authz.ObjectSweep, authz.ActionManage))
			r.Get("/sweeps", h.SweepStatus)
			r.Post("/sweeps/{tweetId}/requeue", h.RequeueSweep)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
