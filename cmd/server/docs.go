// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package main provides the Warbler HTTP server
//
// @title Warbler API
// @version 1.0
// @description Social graph and engagement engine: follows, tweets, replies, likes,
// @description retweets, bookmarks and timelines over an embedded transactional store.
// @description
// @description ## Authentication
// @description
// @description Every endpoint except health requires a Bearer JWT (HS256) carrying an `email`
// @description claim. The first authenticated request registers the user.
// @description Browsers opening `/ws` may pass the token as `?access_token=`.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {
// @description   "success": false,
// @description   "error": {"code": "NOT_FOUND", "message": "tweet not found", "request_id": "..."},
// @description   "meta": {"timestamp": "2026-01-01T00:00:00Z", "duration_ms": 1}
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/warbler/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer <jwt>"
//
// @tag.name Health
// @tag.description Liveness and readiness probes
//
// @tag.name Users
// @tag.description Accounts, profiles, usernames and pinned tweets
//
// @tag.name Graph
// @tag.description Follow relation
//
// @tag.name Tweets
// @tag.description Posting, replies and deletion
//
// @tag.name Engagement
// @tag.description Likes and retweets
//
// @tag.name Timelines
// @tag.description Per-user tweet, media and like timelines
//
// @tag.name Bookmarks
// @tag.description Saved tweets
//
// @tag.name Realtime
// @tag.description WebSocket change notifications
//
// @tag.name Admin
// @tag.description Cascade sweep journal maintenance
package main
