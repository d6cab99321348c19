// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package services

import (
	"context"
	"errors"
	"time"
)

// ErrServerStopped is returned when the supervised server stops on its own.
var ErrServerStopped = errors.New("embedded server stopped unexpectedly")

// EmbeddedServer is the lifecycle of notify.EmbeddedServer.
type EmbeddedServer interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// EmbeddedNATSService owns an embedded NATS server that was started before
// the tree so that transports could connect to it. It shuts the server
// down when the tree stops.
type EmbeddedNATSService struct {
	server          EmbeddedServer
	pollInterval    time.Duration
	shutdownTimeout time.Duration
}

// NewEmbeddedNATSService wraps server.
func NewEmbeddedNATSService(server EmbeddedServer) *EmbeddedNATSService {
	return &EmbeddedNATSService{
		server:          server,
		pollInterval:    5 * time.Second,
		shutdownTimeout: 10 * time.Second,
	}
}

// Serve waits for ctx, checking that the server is still up.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				return ErrServerStopped
			}
		}
	}
}

func (s *EmbeddedNATSService) String() string { return "nats-embedded" }
