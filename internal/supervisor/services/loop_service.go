// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package services

import (
	"context"
	"fmt"
)

// StartStopper is a background loop with explicit Start and Stop, such as
// sweep.RetryLoop.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// LoopService supervises a StartStopper.
type LoopService struct {
	loop StartStopper
	name string
}

// NewLoopService wraps loop under name.
func NewLoopService(name string, loop StartStopper) *LoopService {
	return &LoopService{loop: loop, name: name}
}

// Serve starts the loop, waits for ctx and stops it. Stop waits for the
// loop goroutine to exit.
func (s *LoopService) Serve(ctx context.Context) error {
	if err := s.loop.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}
	<-ctx.Done()
	s.loop.Stop()
	return ctx.Err()
}

func (s *LoopService) String() string { return s.name }

// FuncService supervises a blocking function that honors its context, such
// as store.Store.GCLoop.
type FuncService struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncService wraps fn under name.
func NewFuncService(name string, fn func(ctx context.Context) error) *FuncService {
	return &FuncService{name: name, fn: fn}
}

// Serve implements suture.Service.
func (s *FuncService) Serve(ctx context.Context) error {
	return s.fn(ctx)
}

func (s *FuncService) String() string { return s.name }
