// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/warbler/internal/models"
)

// ErrReadOnly is returned when a write is attempted inside View.
var ErrReadOnly = errors.New("write in read-only transaction")

// ErrUniqueViolation means a unique index key is held by another record.
var ErrUniqueViolation = errors.New("unique index violation")

// Tx is a transaction handle passed to View and Update callbacks. It must
// not be used after the callback returns.
type Tx struct {
	txn      *badger.Txn
	ctx      context.Context
	writable bool
}

// Context returns the transaction's context.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

func recordKey(kind models.Kind, id string) []byte {
	return []byte("rec:" + string(kind) + ":" + id)
}

func manifestKey(kind models.Kind, id string) []byte {
	return []byte("ixm:" + string(kind) + ":" + id)
}

func (tx *Tx) alive() error {
	if err := tx.ctx.Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Get loads the record kind/id into out.
func (tx *Tx) Get(kind models.Kind, id string, out models.Record) error {
	if id == "" {
		return models.NewNotFound(kind, id)
	}
	data, err := tx.GetRaw(string(recordKey(kind, id)))
	if errors.Is(err, models.ErrNotFound) {
		return models.NewNotFound(kind, id)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return nil
}

// Exists reports whether kind/id is present.
func (tx *Tx) Exists(kind models.Kind, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	_, err := tx.GetRaw(string(recordKey(kind, id)))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Put writes rec and brings its index entries in line with rec.IndexKeys.
func (tx *Tx) Put(rec models.Record) error {
	if !tx.writable {
		return ErrReadOnly
	}
	kind, id := rec.RecordKind(), rec.RecordID()
	if id == "" {
		return fmt.Errorf("put %s: empty id", kind)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", kind, id, err)
	}

	old, err := tx.manifest(kind, id)
	if err != nil {
		return err
	}
	next := rec.IndexKeys()

	keep := make(map[string]bool, len(next))
	for _, k := range next {
		keep[k] = true
	}
	for _, k := range old {
		if !keep[k] {
			if err := tx.txn.Delete([]byte(k)); err != nil {
				return writeFailure(err)
			}
		}
	}

	had := make(map[string]bool, len(old))
	for _, k := range old {
		had[k] = true
	}
	for _, k := range next {
		if had[k] {
			continue
		}
		owner, err := tx.Lookup(k)
		if err == nil && owner != id {
			return fmt.Errorf("%w: %w: %s", models.ErrValidation, ErrUniqueViolation, k)
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		if err := tx.txn.Set([]byte(k), []byte(id)); err != nil {
			return writeFailure(err)
		}
	}

	if len(next) > 0 || len(old) > 0 {
		m, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode index manifest: %w", err)
		}
		if err := tx.txn.Set(manifestKey(kind, id), m); err != nil {
			return writeFailure(err)
		}
	}

	if err := tx.txn.Set(recordKey(kind, id), data); err != nil {
		return writeFailure(err)
	}
	return nil
}

// Delete removes kind/id and its index entries. Missing records yield
// a NotFound error.
func (tx *Tx) Delete(kind models.Kind, id string) error {
	if !tx.writable {
		return ErrReadOnly
	}
	ok, err := tx.Exists(kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFound(kind, id)
	}

	keys, err := tx.manifest(kind, id)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := tx.txn.Delete([]byte(k)); err != nil {
			return writeFailure(err)
		}
	}
	if err := tx.txn.Delete(manifestKey(kind, id)); err != nil {
		return writeFailure(err)
	}
	if err := tx.txn.Delete(recordKey(kind, id)); err != nil {
		return writeFailure(err)
	}
	return nil
}

func (tx *Tx) manifest(kind models.Kind, id string) ([]string, error) {
	data, err := tx.GetRaw(string(manifestKey(kind, id)))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("decode index manifest %s %s: %w", kind, id, err)
	}
	return keys, nil
}

// Lookup returns the record id stored under an exact index key.
func (tx *Tx) Lookup(key string) (string, error) {
	v, err := tx.GetRaw(key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// GetRaw reads an arbitrary key. Missing keys give models.ErrNotFound.
func (tx *Tx) GetRaw(key string) ([]byte, error) {
	if err := tx.alive(); err != nil {
		return nil, err
	}
	item, err := tx.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return nil, unavailable(err)
	}
	return v, nil
}

// SetRaw writes an arbitrary key.
func (tx *Tx) SetRaw(key string, value []byte) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if err := tx.txn.Set([]byte(key), value); err != nil {
		return writeFailure(err)
	}
	return nil
}

// DeleteRaw removes an arbitrary key. Missing keys are not an error.
func (tx *Tx) DeleteRaw(key string) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if err := tx.txn.Delete([]byte(key)); err != nil {
		return writeFailure(err)
	}
	return nil
}

// ScanRaw visits keys under prefix in ascending order until fn returns false.
func (tx *Tx) ScanRaw(prefix string, fn func(key string, value []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := tx.alive(); err != nil {
			return err
		}
		item := it.Item()
		v, err := item.ValueCopy(nil)
		if err != nil {
			return unavailable(err)
		}
		cont, err := fn(string(item.KeyCopy(nil)), v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// Scan visits every record of kind in id order, decoding each into a fresh
// T. Records that fail to decode are skipped. fn returns false to stop.
func Scan[T any, PT interface {
	*T
	models.Record
}](tx *Tx, kind models.Kind, fn func(rec PT) (bool, error)) error {
	prefix := "rec:" + string(kind) + ":"
	return tx.ScanRaw(prefix, func(key string, value []byte) (bool, error) {
		rec := PT(new(T))
		if err := json.Unmarshal(value, rec); err != nil {
			return true, nil
		}
		return fn(rec)
	})
}
