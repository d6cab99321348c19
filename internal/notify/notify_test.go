// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/warbler/internal/logging"
)

type countingSink struct {
	name  string
	calls atomic.Int32
	err   error
	delay time.Duration
	panic bool

	mu   sync.Mutex
	seen []Notification
}

func (s *countingSink) Name() string { return s.name }

func (s *countingSink) Deliver(ctx context.Context, n Notification) error {
	s.calls.Add(1)
	if s.panic {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.seen = append(s.seen, n)
	s.mu.Unlock()
	return nil
}

func (s *countingSink) received() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.seen...)
}

type fakeHub struct {
	mu     sync.Mutex
	got    []string
	signal chan struct{}
}

func newFakeHub() *fakeHub { return &fakeHub{signal: make(chan struct{}, 16)} }

func (h *fakeHub) BroadcastTopic(topic, event string, payload json.RawMessage) {
	h.mu.Lock()
	h.got = append(h.got, topic+"|"+event+"|"+string(payload))
	h.mu.Unlock()
	h.signal <- struct{}{}
}

func (h *fakeHub) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.got...)
}

func TestTopics(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{UserTopic("u1"), "user_u1"},
		{TweetTopic("t1"), "tweet_t1"},
		{BookmarksTopic("u1"), "bookmarks_u1"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	r.Publish(ctx, Notification{Topic: "tweet_1", Event: EventTweetLiked})
	r.Publish(ctx, Notification{Topic: "tweet_2", Event: EventTweetLiked})
	r.Publish(ctx, Notification{Topic: "user_1", Event: EventFollowersChanged})

	if n := len(r.Notifications()); n != 3 {
		t.Fatalf("recorded %d, want 3", n)
	}
	last, ok := r.Last(EventTweetLiked)
	if !ok || last.Topic != "tweet_2" {
		t.Errorf("Last = %+v, %v", last, ok)
	}
	if _, ok := r.Last(EventTweetDeleted); ok {
		t.Error("Last found an event that was never sent")
	}
	r.Reset()
	if len(r.Notifications()) != 0 {
		t.Error("Reset left notifications behind")
	}
}

func TestBridgeDeliversToAllSinks(t *testing.T) {
	a := &countingSink{name: "a"}
	b := &countingSink{name: "b"}
	bridge := NewBridge(DefaultBridgeConfig(), a, b)

	bridge.Publish(context.Background(), Notification{Topic: "tweet_1", Event: EventTweetLiked, Payload: TweetLiked{TweetID: "1", LikeCount: 1}})
	bridge.Wait()

	for _, s := range []*countingSink{a, b} {
		got := s.received()
		if len(got) != 1 {
			t.Fatalf("sink %s received %d, want 1", s.name, len(got))
		}
		if got[0].At.IsZero() {
			t.Errorf("sink %s: At not stamped", s.name)
		}
	}
}

func TestBridgePublishDoesNotBlock(t *testing.T) {
	slow := &countingSink{name: "slow", delay: time.Second}
	bridge := NewBridge(BridgeConfig{PublishTimeout: 50 * time.Millisecond, Breaker: DefaultBreakerConfig()}, slow)

	start := time.Now()
	bridge.Publish(context.Background(), Notification{Topic: "user_1", Event: EventUserUpdated})
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("Publish blocked for %s", elapsed)
	}
	bridge.Wait()
	if len(slow.received()) != 0 {
		t.Error("slow sink should have timed out")
	}
}

func TestBridgeSurvivesCanceledCaller(t *testing.T) {
	s := &countingSink{name: "s"}
	bridge := NewBridge(DefaultBridgeConfig(), s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bridge.Publish(ctx, Notification{Topic: "user_1", Event: EventUserUpdated})
	bridge.Wait()

	if len(s.received()) != 1 {
		t.Error("delivery should not inherit the caller's cancellation")
	}
}

func TestBridgeIsolatesPanics(t *testing.T) {
	bad := &countingSink{name: "bad", panic: true}
	good := &countingSink{name: "good"}
	bridge := NewBridge(DefaultBridgeConfig(), bad, good)

	bridge.Publish(context.Background(), Notification{Topic: "tweet_1", Event: EventTweetDeleted})
	bridge.Wait()

	if len(good.received()) != 1 {
		t.Error("healthy sink missed the notification")
	}
}

func TestBridgeBreakerOpens(t *testing.T) {
	failing := &countingSink{name: "failing", err: errors.New("down")}
	cfg := DefaultBridgeConfig()
	cfg.Breaker.FailureThreshold = 3
	cfg.Breaker.Timeout = time.Hour
	bridge := NewBridge(cfg, failing)

	for i := 0; i < 10; i++ {
		bridge.Publish(context.Background(), Notification{Topic: "tweet_1", Event: EventTweetLiked})
		bridge.Wait()
	}

	if got := failing.calls.Load(); got != 3 {
		t.Errorf("sink called %d times, want 3 before the breaker opened", got)
	}
	if state, ok := bridge.SinkState("failing"); !ok || state != "open" {
		t.Errorf("SinkState = %q, %v", state, ok)
	}
	if _, ok := bridge.SinkState("missing"); ok {
		t.Error("SinkState found an unknown sink")
	}
}

func TestBridgeLogsFailedDelivery(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(logging.NewTestLogger(&buf))
	defer logging.Init(logging.DefaultConfig())

	failing := &countingSink{name: "failing", err: errors.New("down")}
	bridge := NewBridge(DefaultBridgeConfig(), failing)

	ctx := logging.ContextWithRequestID(context.Background(), "req-7")
	bridge.Publish(ctx, Notification{Topic: TweetTopic("t1"), Event: EventTweetLiked})
	bridge.Wait()

	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	if i := strings.LastIndex(line, "\n"); i >= 0 {
		line = line[i+1:]
	}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", line, err)
	}
	want := map[string]any{
		"level":      "warn",
		"message":    "Notification not delivered",
		"sink":       "failing",
		"topic":      "tweet_t1",
		"event":      "TweetLiked",
		"request_id": "req-7",
		"error":      "down",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestBridgeClose(t *testing.T) {
	s := &countingSink{name: "s"}
	bridge := NewBridge(DefaultBridgeConfig(), s)
	if err := bridge.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	bridge.Publish(context.Background(), Notification{Topic: "user_1", Event: EventUserUpdated})
	bridge.Wait()
	if s.calls.Load() != 0 {
		t.Error("closed bridge still delivered")
	}
}

func TestHubSink(t *testing.T) {
	hub := newFakeHub()
	sink := NewHubSink(hub)
	err := sink.Deliver(context.Background(), Notification{
		Topic:   BookmarksTopic("u1"),
		Event:   EventBookmarkAdded,
		Payload: BookmarkChanged{TweetID: "t1"},
	})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	got := hub.messages()
	want := `bookmarks_u1|BookmarkAdded|{"tweetId":"t1"}`
	if len(got) != 1 || got[0] != want {
		t.Errorf("hub got %v, want %q", got, want)
	}
}

func TestRelayOverGoChannel(t *testing.T) {
	transport := NewGoChannelTransport("test", 16)
	defer transport.Close()

	hub := newFakeHub()
	relay := NewRelay(transport, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- relay.Serve(ctx) }()

	// gochannel drops messages published before a subscriber exists.
	time.Sleep(50 * time.Millisecond)

	bridge := NewBridge(DefaultBridgeConfig(), NewWatermillSink(transport))
	bridge.Publish(ctx, Notification{
		Topic:   TweetTopic("t9"),
		Event:   EventReplyAdded,
		Payload: ReplyAdded{TweetID: "t9", ReplyID: "r1", ReplyCount: 1},
	})
	bridge.Wait()

	select {
	case <-hub.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not forward the notification")
	}

	got := hub.messages()
	want := `tweet_t9|ReplyAdded|{"tweetId":"t9","replyId":"r1","replyCount":1}`
	if got[0] != want {
		t.Errorf("hub got %q, want %q", got[0], want)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestGoChannelSubject(t *testing.T) {
	transport := NewGoChannelTransport("", 1)
	defer transport.Close()
	if got := transport.SubjectFor("user_1"); got != "warbler.events" {
		t.Errorf("SubjectFor = %q", got)
	}
	if transport.SubscribeSubject() != "warbler.events" {
		t.Errorf("SubscribeSubject = %q", transport.SubscribeSubject())
	}
}

func TestEmbeddedServer(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a NATS server")
	}
	srv, err := StartEmbeddedServer(EmbeddedConfig{Port: -1})
	if err != nil {
		t.Fatalf("StartEmbeddedServer: %v", err)
	}
	if !srv.IsRunning() {
		t.Error("server not running")
	}
	if srv.ClientURL() == "" {
		t.Error("empty client URL")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
