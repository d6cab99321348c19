// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package testinfra provides container-backed infrastructure for integration tests.
//
// Everything here is behind the "integration" build tag and uses
// testcontainers-go, so the default test run never needs Docker.
//
// # NATS Container
//
// NATSContainer starts a stock nats-server so the notification transport can
// be exercised against a real broker rather than the embedded one:
//
//	func TestRelay(t *testing.T) {
//	    ctx := context.Background()
//	    testinfra.SkipIfNoDocker(t)
//	    broker, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, broker.Container)
//
//	    cfg := notify.DefaultNATSConfig()
//	    cfg.URL = broker.URL
//	    transport, err := notify.NewNATSTransport(cfg)
//	    // ...
//	}
//
// Run with:
//
//	go test -tags integration ./internal/testinfra/...
//
// Tests skip themselves when Docker is unavailable. The first run pulls the
// image; later runs use the local cache.
package testinfra
