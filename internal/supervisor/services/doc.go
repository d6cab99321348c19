// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package services adapts components with their own lifecycle shapes to
// suture.Service: an http.Server, Start/Stop loops such as the sweep retry
// loop, plain blocking functions such as the store GC loop, and an
// already-running embedded NATS server.
package services
