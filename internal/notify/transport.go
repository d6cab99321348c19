// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/warbler/internal/logging"
)

// Metadata keys set on every message.
const (
	MetaTopic = "warbler_topic"
	MetaEvent = "warbler_event"
)

// Transport is a watermill publisher/subscriber pair plus the subject
// mapping used on top of it.
type Transport struct {
	Name       string
	Publisher  message.Publisher
	Subscriber message.Subscriber

	subject   func(topic string) string
	subscribe string
}

// SubjectFor returns the transport subject a topic is published on.
func (t *Transport) SubjectFor(topic string) string {
	return t.subject(topic)
}

// SubscribeSubject is what a relay subscribes to in order to see every topic.
func (t *Transport) SubscribeSubject() string {
	return t.subscribe
}

// Close closes both halves.
func (t *Transport) Close() error {
	return errors.Join(t.Publisher.Close(), t.Subscriber.Close())
}

// NewGoChannelTransport returns an in-process transport. gochannel has no
// wildcard subscriptions, so every topic goes to one subject and the topic
// travels in metadata.
func NewGoChannelTransport(prefix string, buffer int64) *Transport {
	if prefix == "" {
		prefix = "warbler"
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: buffer,
	}, logging.NewWatermillAdapter())

	all := prefix + ".events"
	return &Transport{
		Name:       "gochannel",
		Publisher:  pubsub,
		Subscriber: pubsub,
		subject:    func(string) string { return all },
		subscribe:  all,
	}
}

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	URL            string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ReconnectBuf   int
	CloseTimeout   time.Duration
	SubscriberPool int
}

// DefaultNATSConfig returns defaults for a local server.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:            natsgo.DefaultURL,
		SubjectPrefix:  "warbler",
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
		ReconnectBuf:   8 * 1024 * 1024,
		CloseTimeout:   10 * time.Second,
		SubscriberPool: 1,
	}
}

func natsOptions(cfg *NATSConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("warbler-notify"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuf),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

// NewNATSTransport connects to NATS core (no JetStream). Notifications are
// best-effort so there is nothing for a stream to persist. Each topic maps to
// "<prefix>.<topic>" and the relay subscribes to "<prefix>.>".
func NewNATSTransport(cfg NATSConfig) (*Transport, error) {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "warbler"
	}
	if cfg.SubscriberPool < 1 {
		cfg.SubscriberPool = 1
	}
	logger := logging.NewWatermillAdapter()
	opts := natsOptions(&cfg, logger)

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: opts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: cfg.SubscriberPool,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      opts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	prefix := cfg.SubjectPrefix
	return &Transport{
		Name:       "nats",
		Publisher:  pub,
		Subscriber: sub,
		subject:    func(topic string) string { return prefix + "." + topic },
		subscribe:  prefix + ".>",
	}, nil
}

// envelope is the wire form. Payload is kept raw so the relay never needs
// the concrete payload type.
type envelope struct {
	Topic   string          `json:"topic"`
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
}

// WatermillSink publishes notifications onto a Transport.
type WatermillSink struct {
	transport *Transport
}

// NewWatermillSink wraps t.
func NewWatermillSink(t *Transport) *WatermillSink {
	return &WatermillSink{transport: t}
}

// Name implements Sink.
func (s *WatermillSink) Name() string { return "transport_" + s.transport.Name }

// Deliver implements Sink.
func (s *WatermillSink) Deliver(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetaTopic, n.Topic)
	msg.Metadata.Set(MetaEvent, string(n.Event))
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}
	return s.transport.Publisher.Publish(s.transport.SubjectFor(n.Topic), msg)
}

func decodeEnvelope(msg *message.Message) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return env, fmt.Errorf("decode notification: %w", err)
	}
	if env.Topic == "" {
		env.Topic = msg.Metadata.Get(MetaTopic)
	}
	if env.Event == "" {
		env.Event = Event(msg.Metadata.Get(MetaEvent))
	}
	return env, nil
}
