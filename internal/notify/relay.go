// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/warbler/internal/logging"
)

// Broadcaster pushes a serialized event to everyone subscribed to topic.
// The websocket hub implements it.
type Broadcaster interface {
	BroadcastTopic(topic, event string, payload json.RawMessage)
}

// HubSink delivers straight into a Broadcaster, for single-process setups
// that skip the transport.
type HubSink struct {
	hub Broadcaster
}

// NewHubSink wraps hub.
func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

// Name implements Sink.
func (s *HubSink) Name() string { return "hub" }

// Deliver implements Sink.
func (s *HubSink) Deliver(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	s.hub.BroadcastTopic(n.Topic, string(n.Event), payload)
	return nil
}

// Relay subscribes to a Transport and forwards everything to a Broadcaster.
// It satisfies suture.Service.
type Relay struct {
	transport *Transport
	hub       Broadcaster
	log       zerolog.Logger
}

// NewRelay creates a relay.
func NewRelay(t *Transport, hub Broadcaster) *Relay {
	return &Relay{
		transport: t,
		hub:       hub,
		log:       logging.WithComponent("notify-relay"),
	}
}

// Serve runs until ctx is canceled or the subscription closes.
func (r *Relay) Serve(ctx context.Context) error {
	msgs, err := r.transport.Subscriber.Subscribe(ctx, r.transport.SubscribeSubject())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.transport.SubscribeSubject(), err)
	}
	r.log.Info().Str("subject", r.transport.SubscribeSubject()).Msg("Notification relay started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("notification subscription closed")
			}
			env, err := decodeEnvelope(msg)
			if err != nil {
				// Undecodable messages will never decode; drop them.
				r.log.Warn().Err(err).Str("uuid", msg.UUID).Msg("Dropping notification")
				msg.Ack()
				continue
			}
			r.hub.BroadcastTopic(env.Topic, string(env.Event), env.Payload)
			msg.Ack()
		}
	}
}

func (r *Relay) String() string { return "notify-relay" }
