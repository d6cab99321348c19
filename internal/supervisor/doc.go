// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package supervisor runs Warbler's long-lived services under a suture
// supervisor tree:
//
//	warbler
//	├── data-layer       store GC, sweep retry loop
//	├── messaging-layer  websocket hub, notification relay, embedded NATS
//	└── api-layer        HTTP server
//
// A crashing service is restarted with backoff without taking down its
// siblings. Supervisor events are logged through sutureslog into the same
// zerolog stream as everything else.
package supervisor
