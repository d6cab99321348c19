// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

/*
Package middleware provides the infrastructure middleware shared by every
Warbler HTTP route.

  - RequestID: accepts or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - PrometheusMetrics: request count, latency and in-flight gauge labeled
    by chi route pattern so path parameters do not explode cardinality
  - AccessLog: one zerolog line per request, at warn level when slow or 5xx

Order in the router:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog(time.Second))

Authentication and authorization live in internal/auth and internal/authz.
*/
package middleware
