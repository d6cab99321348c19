// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/warbler/internal/config"
	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/supervisor"
	"github.com/tomtom215/warbler/internal/supervisor/services"
	ws "github.com/tomtom215/warbler/internal/websocket"
)

// gochannelBuffer is the in-process transport's per-subscriber buffer.
const gochannelBuffer = 1024

// NotifyComponents holds the notification pipeline for lifecycle management.
type NotifyComponents struct {
	Bridge    *notify.Bridge
	transport *notify.Transport
	relay     *notify.Relay
	server    *notify.EmbeddedServer
}

// InitNotify builds the notification pipeline:
//
//	engine -> Bridge -> WatermillSink -> transport -> Relay -> websocket hub
//
// The transport is an in-process gochannel or NATS. With NATS_EMBEDDED the
// server runs in this process.
func InitNotify(cfg *config.Config, hub *ws.Hub) (*NotifyComponents, error) {
	n := cfg.Notify
	c := &NotifyComponents{}

	switch n.Backend {
	case "nats":
		natsCfg := notify.DefaultNATSConfig()
		natsCfg.URL = n.NATSURL
		natsCfg.SubjectPrefix = n.SubjectPrefix

		if n.EmbeddedServer {
			srv, err := notify.StartEmbeddedServer(notify.EmbeddedConfig{Port: n.EmbeddedPort})
			if err != nil {
				return nil, fmt.Errorf("start embedded NATS: %w", err)
			}
			c.server = srv
			natsCfg.URL = srv.ClientURL()
			logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
		} else {
			logging.Info().Str("url", natsCfg.URL).Msg("Using external NATS server")
		}

		t, err := notify.NewNATSTransport(natsCfg)
		if err != nil {
			c.Shutdown(context.Background())
			return nil, fmt.Errorf("create NATS transport: %w", err)
		}
		c.transport = t
	default:
		c.transport = notify.NewGoChannelTransport(n.SubjectPrefix, gochannelBuffer)
	}

	c.relay = notify.NewRelay(c.transport, hub)
	c.Bridge = notify.NewBridge(notify.BridgeConfig{
		PublishTimeout: n.PublishTimeout,
		Breaker: notify.BreakerConfig{
			MaxRequests:      1,
			Interval:         n.BreakerInterval,
			Timeout:          n.BreakerTimeout,
			FailureThreshold: uint32(n.BreakerFailures), //nolint:gosec // validated >= 1
		},
	}, notify.NewWatermillSink(c.transport))

	logging.Info().
		Str("backend", c.transport.Name).
		Str("subject", c.transport.SubscribeSubject()).
		Msg("Notification pipeline initialized")
	return c, nil
}

// AddToSupervisor registers the relay and, when present, the embedded
// server with the messaging layer.
func (c *NotifyComponents) AddToSupervisor(tree *supervisor.Tree) {
	if c.server != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(c.server))
	}
	tree.AddMessagingService(c.relay)
}

// Shutdown drains pending deliveries and closes the transport. The embedded
// server, if any, is stopped by its supervisor service or here when the tree
// never started.
func (c *NotifyComponents) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if c.Bridge != nil {
		if err := c.Bridge.Close(ctx); err != nil {
			logging.Warn().Err(err).Msg("Notification bridge did not drain")
		}
	}
	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing notification transport")
		}
	}
	if c.server != nil && c.server.IsRunning() {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Error stopping embedded NATS server")
		}
	}
}
