// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

/*
Command server runs the Warbler API.

Startup order:

 1. Configuration (koanf: defaults, config.yaml, environment)
 2. Logging (zerolog)
 3. Record store (BadgerDB) and cascade sweep recovery
 4. Notification transport (in-process gochannel, or NATS with an optional
    embedded server) behind a circuit-broken bridge
 5. Domain services, casbin enforcer, authentication
 6. HTTP router (chi)
 7. Supervisor tree (suture) with data, messaging and API layers

# Configuration

Environment variables override the config file:

	HTTP_PORT=8080
	STORE_PATH=/data/warbler
	AUTH_MODE=jwt
	JWT_SECRET=...
	NOTIFY_BACKEND=nats
	NATS_EMBEDDED=true
	CASBIN_POLICY_PATH=/etc/warbler/policy.csv

CONFIG_PATH points at a YAML file; otherwise ./config.yaml and
/etc/warbler/config.yaml are tried.

# Endpoints

REST API under /api/v1, Prometheus metrics at /metrics, and Swagger UI at
/swagger/index.html.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the API
layer, then messaging, then data; the store is closed last.
*/
package main
