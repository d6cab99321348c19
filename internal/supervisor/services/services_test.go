// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	listenErr error
	stop      chan struct{}
	once      sync.Once
	shutdowns atomic.Int32
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.once.Do(func() { close(f.stop) })
	return nil
}

func TestHTTPServerService(t *testing.T) {
	t.Run("graceful shutdown on cancel", func(t *testing.T) {
		srv := newFakeServer(nil)
		svc := NewHTTPServerService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()
		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("shutdowns = %d", srv.shutdowns.Load())
		}
	})

	t.Run("listen failure is returned", func(t *testing.T) {
		boom := errors.New("address in use")
		svc := NewHTTPServerService(newFakeServer(boom), 0)
		if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
			t.Errorf("Serve = %v, want %v", err, boom)
		}
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("default shutdown timeout = %v", svc.shutdownTimeout)
		}
	})

	if s := NewHTTPServerService(newFakeServer(nil), 0).String(); s != "http-server" {
		t.Errorf("String = %q", s)
	}
}

type fakeLoop struct {
	startErr error
	running  atomic.Bool
	stops    atomic.Int32
}

func (l *fakeLoop) Start(context.Context) error {
	if l.startErr != nil {
		return l.startErr
	}
	l.running.Store(true)
	return nil
}

func (l *fakeLoop) Stop() {
	l.stops.Add(1)
	l.running.Store(false)
}

func (l *fakeLoop) IsRunning() bool { return l.running.Load() }

func TestLoopService(t *testing.T) {
	loop := &fakeLoop{}
	svc := NewLoopService("sweep-retry", loop)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !loop.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !loop.IsRunning() {
		t.Fatal("loop not started")
	}
	cancel()
	<-done
	if loop.IsRunning() || loop.stops.Load() != 1 {
		t.Errorf("loop not stopped: running=%v stops=%d", loop.IsRunning(), loop.stops.Load())
	}
	if svc.String() != "sweep-retry" {
		t.Errorf("String = %q", svc.String())
	}

	failing := NewLoopService("broken", &fakeLoop{startErr: errors.New("nope")})
	if err := failing.Serve(context.Background()); err == nil {
		t.Error("start failure should be returned")
	}
}

func TestFuncService(t *testing.T) {
	called := false
	svc := NewFuncService("store-gc", func(ctx context.Context) error {
		called = true
		return ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v", err)
	}
	if !called || svc.String() != "store-gc" {
		t.Errorf("called=%v name=%q", called, svc.String())
	}
}

type fakeEmbedded struct {
	running   atomic.Bool
	shutdowns atomic.Int32
}

func (f *fakeEmbedded) IsRunning() bool { return f.running.Load() }

func (f *fakeEmbedded) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.running.Store(false)
	return nil
}

func TestEmbeddedNATSService(t *testing.T) {
	t.Run("shuts server down on cancel", func(t *testing.T) {
		srv := &fakeEmbedded{}
		srv.running.Store(true)
		svc := NewEmbeddedNATSService(srv)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v", err)
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("shutdowns = %d", srv.shutdowns.Load())
		}
	})

	t.Run("reports a dead server", func(t *testing.T) {
		svc := NewEmbeddedNATSService(&fakeEmbedded{})
		svc.pollInterval = 5 * time.Millisecond
		if err := svc.Serve(context.Background()); !errors.Is(err, ErrServerStopped) {
			t.Errorf("Serve = %v, want ErrServerStopped", err)
		}
	})
}
