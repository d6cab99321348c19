// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
)

// Sink receives notifications. Deliver should honor ctx.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

// BridgeConfig configures delivery.
type BridgeConfig struct {
	// PublishTimeout bounds a single delivery attempt per sink.
	PublishTimeout time.Duration
	Breaker        BreakerConfig
}

// DefaultBridgeConfig returns production defaults.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		PublishTimeout: 2 * time.Second,
		Breaker:        DefaultBreakerConfig(),
	}
}

var errDeliveryPanic = errors.New("sink panicked")

type guardedSink struct {
	sink Sink
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// Bridge fans notifications out to sinks. Each sink is attempted once per
// notification in its own goroutine, so a slow or failing sink never holds up
// the operation that produced the fact or the other sinks.
type Bridge struct {
	sinks   []*guardedSink
	timeout time.Duration

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewBridge creates a bridge over sinks.
func NewBridge(cfg BridgeConfig, sinks ...Sink) *Bridge {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultBridgeConfig().PublishTimeout
	}
	b := &Bridge{timeout: cfg.PublishTimeout}
	for _, s := range sinks {
		b.sinks = append(b.sinks, &guardedSink{sink: s, cb: newBreaker(s.Name(), cfg.Breaker)})
	}
	return b
}

// Publish implements Publisher. It returns immediately.
func (b *Bridge) Publish(ctx context.Context, n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}

	// The caller's request may finish before delivery does.
	base := context.WithoutCancel(ctx)
	for _, gs := range b.sinks {
		b.wg.Add(1)
		go b.deliver(base, gs, n)
	}
}

func (b *Bridge) deliver(ctx context.Context, gs *guardedSink, n Notification) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", errDeliveryPanic, r)
			}
		}()
		_, err := gs.cb.Execute(func() (struct{}, error) {
			return struct{}{}, gs.sink.Deliver(ctx, n)
		})
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	name := gs.sink.Name()
	switch {
	case err == nil:
		metrics.RecordDelivery(name, "delivered")
		return
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordDelivery(name, "rejected")
	case errors.Is(err, context.DeadlineExceeded):
		metrics.RecordDelivery(name, "timeout")
	default:
		metrics.RecordDelivery(name, "failed")
	}

	lg := logging.CtxWith(ctx).
		Str("component", "notify").
		Str("sink", name).
		Str("topic", n.Topic).
		Str("event", string(n.Event)).
		Logger()
	lg.Warn().Err(err).Msg("Notification not delivered")
}

// Wait blocks until in-flight deliveries finish.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// Close stops accepting notifications and waits for in-flight deliveries or
// ctx, whichever comes first.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify bridge close: %w", ctx.Err())
	}
}

// SinkState reports the breaker state for a sink, for health output.
func (b *Bridge) SinkState(name string) (string, bool) {
	for _, gs := range b.sinks {
		if gs.sink.Name() == name {
			return gs.cb.State().String(), true
		}
	}
	return "", false
}
