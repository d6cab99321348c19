// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/warbler/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
	maxTopics      = 256
)

// clientIDs orders clients by connection time.
var clientIDs atomic.Uint64

// Client is one websocket connection and its topic subscriptions.
type Client struct {
	id      uint64
	actorID string
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message

	mu     sync.RWMutex
	topics map[string]bool
}

func newClient(hub *Hub, conn *websocket.Conn, actorID string) *Client {
	return &Client{
		id:      clientIDs.Add(1),
		actorID: actorID,
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		topics:  make(map[string]bool),
	}
}

// Attach registers conn for actorID with the hub and starts its pumps.
// The hub takes ownership of conn. It returns nil when the hub has stopped.
func (h *Hub) Attach(conn *websocket.Conn, actorID string) *Client {
	c := newClient(h, conn, actorID)
	select {
	case h.register <- c:
	case <-h.stopped:
		_ = conn.Close()
		return nil
	}
	go c.writePump()
	go c.readPump()
	return c
}

// ID returns the client's connection sequence number.
func (c *Client) ID() uint64 { return c.id }

func (c *Client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[topic]
}

type topicRequest struct {
	Topic string `json:"topic"`
}

// handle answers one inbound frame. The reply, if any, is returned rather
// than written so the write pump stays the only writer.
func (c *Client) handle(msg Message) *Message {
	switch msg.Type {
	case MessageTypePing:
		return &Message{Type: MessageTypePong}
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
	default:
		return errorMessage("unknown message type")
	}

	var req topicRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return errorMessage("malformed data")
		}
	}
	if req.Topic == "" {
		req.Topic = msg.Topic
	}
	if !AllowTopic(c.actorID, req.Topic) {
		return errorMessage("topic not allowed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.Type == MessageTypeUnsubscribe {
		delete(c.topics, req.Topic)
		return &Message{Type: MessageTypeUnsubscribed, Topic: req.Topic}
	}
	if !c.topics[req.Topic] && len(c.topics) >= maxTopics {
		return errorMessage("too many subscriptions")
	}
	c.topics[req.Topic] = true
	return &Message{Type: MessageTypeSubscribed, Topic: req.Topic}
}

func errorMessage(text string) *Message {
	data, _ := json.Marshal(map[string]string{"message": text})
	return &Message{Type: MessageTypeError, Data: data}
}

// reply queues a control response without blocking the read loop.
func (c *Client) reply(m *Message) {
	defer func() {
		// send is closed once the hub drops the client
		_ = recover()
	}()
	select {
	case c.send <- *m:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.log.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Uint64("client_id", c.id).Msg("Unexpected websocket close")
			}
			return
		}
		metrics.WSMessages.WithLabelValues("received").Inc()

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply(errorMessage("malformed message"))
			continue
		}
		if out := c.handle(msg); out != nil {
			c.reply(out)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				c.hub.log.Error().Err(err).Msg("Failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
