// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/notify"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline means the context timed out.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Control message types. Event messages use the notify.Event name as type.
const (
	MessageTypeSubscribe    = "subscribe"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

// Message is one websocket frame in either direction.
type Message struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type topicMessage struct {
	topic string
	msg   Message
}

// Hub tracks connected clients and fans topic messages out to subscribers.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan topicMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        zerolog.Logger

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewHub creates a Hub. Start it with Serve.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan topicMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        logging.WithComponent("websocket"),
		stopped:    make(chan struct{}),
	}
}

// Serve runs the hub until ctx is done, then disconnects every client.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		// shutdown first
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		// then lifecycle, so a broadcast never races a fresh registration
		select {
		case c := <-h.register:
			h.add(c)
			continue
		case c := <-h.unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

// String names the hub in supervisor logs.
func (h *Hub) String() string { return "websocket-hub" }

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSClients.Set(float64(n))
	h.log.Debug().Uint64("client_id", c.id).Str("actor_id", c.actorID).Int("total_clients", n).Msg("Client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSClients.Set(float64(n))
	h.log.Debug().Uint64("client_id", c.id).Int("total_clients", n).Msg("Client disconnected")
}

// ordered returns clients sorted by id. Caller holds h.mu.
func (h *Hub) ordered() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

func (h *Hub) deliver(m topicMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for _, c := range h.ordered() {
		if !c.subscribed(m.topic) {
			continue
		}
		select {
		case c.send <- m.msg:
			metrics.WSMessages.WithLabelValues("sent").Inc()
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		metrics.WSMessages.WithLabelValues("dropped").Inc()
		h.log.Warn().Uint64("client_id", c.id).Str("topic", m.topic).Msg("Client send buffer full, disconnecting")
		close(c.send)
		delete(h.clients, c)
	}
	if len(slow) > 0 {
		metrics.WSClients.Set(float64(len(h.clients)))
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.stopped) })
	h.mu.Lock()
	clients := h.ordered()
	for _, c := range clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	metrics.WSClients.Set(0)

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	h.log.Info().Str("reason", string(reason)).Int("clients_closed", len(clients)).Msg("Websocket hub stopped")
}

// BroadcastTopic queues an event for everyone subscribed to topic. It never
// blocks; when the queue is full the event is dropped.
func (h *Hub) BroadcastTopic(topic, event string, payload json.RawMessage) {
	m := topicMessage{topic: topic, msg: Message{Type: event, Topic: topic, Data: payload}}
	select {
	case h.broadcast <- m:
	default:
		metrics.WSMessages.WithLabelValues("dropped").Inc()
		h.log.Warn().Str("topic", topic).Str("event", event).Msg("Broadcast queue full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// AllowTopic reports whether actorID may subscribe to topic.
func AllowTopic(actorID, topic string) bool {
	for _, prefix := range []string{notify.UserTopicPrefix, notify.TweetTopicPrefix} {
		if id, ok := strings.CutPrefix(topic, prefix); ok {
			return id != ""
		}
	}
	if id, ok := strings.CutPrefix(topic, notify.BookmarksTopicPrefix); ok {
		return id != "" && id == actorID
	}
	return false
}

var _ notify.Broadcaster = (*Hub)(nil)
