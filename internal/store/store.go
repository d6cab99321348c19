// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package store is the record store adapter: typed records over BadgerDB
// with serializable multi-record transactions and secondary indexes.
//
// Key layout:
//
//	rec:<kind>:<id>        record body (JSON)
//	idx:<index>:...        secondary index entry, value is the record id
//	ixm:<kind>:<id>        index keys currently written for a record
//	sweep:...              cascade sweep journal (see package sweep)
//
// Every Update is exactly one attempt. Badger tracks every key read inside
// the transaction, so a concurrent commit touching one of them makes this
// commit fail with models.ErrConflict instead of silently overwriting it.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rs/zerolog"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
)

// Options configures Open.
type Options struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path string

	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// CommitTimeout bounds each Update, including the commit itself.
	CommitTimeout time.Duration

	// Compression enables Snappy block compression.
	Compression bool

	// MemTableSize overrides Badger's memtable size; 0 keeps the default.
	// One transaction may write at most 15% of it.
	MemTableSize int64
}

// DefaultOptions returns production defaults for path.
func DefaultOptions(path string) Options {
	return Options{
		Path:          path,
		SyncWrites:    true,
		CommitTimeout: 5 * time.Second,
		Compression:   true,
	}
}

// ErrClosed is returned after Close.
var ErrClosed = fmt.Errorf("store closed: %w", models.ErrStoreUnavailable)

// Store wraps a Badger database.
type Store struct {
	db   *badger.DB
	opts Options
	log  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("store path is required")
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 5 * time.Second
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.SyncWrites = opts.SyncWrites && !opts.InMemory
	if opts.Compression {
		bopts.Compression = options.Snappy
	} else {
		bopts.Compression = options.None
	}
	if opts.MemTableSize > 0 {
		bopts.MemTableSize = opts.MemTableSize
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &Store{db: db, opts: opts, log: logging.WithComponent("store")}
	s.log.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Bool("sync_writes", bopts.SyncWrites).
		Dur("commit_timeout", opts.CommitTimeout).
		Msg("Store opened")
	return s, nil
}

// OpenInMemory opens a throwaway store for tests and local runs.
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true, CommitTimeout: 5 * time.Second})
}

// Close closes the database. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	s.log.Info().Msg("Store closed")
	return nil
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Ping reports whether the store can serve a read.
func (s *Store) Ping(ctx context.Context) error {
	return s.View(ctx, func(*Tx) error { return nil })
}

// View runs fn in a read-only snapshot.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	start := time.Now()
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	err := fn(&Tx{txn: txn, ctx: ctx})
	metrics.RecordStoreTx(false, time.Since(start), err)
	return err
}

// Update runs fn in a read-write transaction and commits it. The whole call,
// commit included, is bounded by Options.CommitTimeout. Errors returned by
// fn abort the transaction and are returned unchanged.
//
// When the deadline passes while the commit is in flight the result is
// ErrStoreUnavailable even though the write may still land; engine
// operations are idempotent so a retry converges.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) (err error) {
	if s.isClosed() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.CommitTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordStoreTx(true, time.Since(start), err)
		if errors.Is(err, models.ErrConflict) {
			s.log.Debug().Err(err).Msg("Commit lost a write conflict")
		}
	}()

	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	tx := &Tx{txn: txn, ctx: ctx, writable: true}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}

	done := make(chan error, 1)
	txn.CommitWith(func(err error) { done <- err })

	select {
	case err := <-done:
		return mapCommitError(err)
	case <-ctx.Done():
		return unavailable(ctx.Err())
	}
}

// RetryConflicts calls fn until it succeeds, fails with something other than
// a conflict, or attempts run out. Only request handlers use it; engine
// operations make a single attempt.
func RetryConflicts(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !errors.Is(err, models.ErrConflict) {
			return err
		}
		backoff := time.Duration(i+1) * 5 * time.Millisecond
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
	}
	return err
}

// DB exposes the underlying database for maintenance tasks.
func (s *Store) DB() *badger.DB {
	return s.db
}

// InMemory reports whether the store has no disk backing.
func (s *Store) InMemory() bool {
	return s.opts.InMemory
}

func mapCommitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("commit: %w", models.ErrConflict)
	default:
		return writeFailure(err)
	}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
}

// writeFailure classifies an error from a transaction write. A transaction
// that outgrew Badger's size limit will never fit, so it is terminal.
func writeFailure(err error) error {
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: %w", models.ErrTooLarge, err)
	}
	return unavailable(err)
}
