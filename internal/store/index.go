// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package store

import (
	"github.com/dgraph-io/badger/v4"
)

// IndexQuery selects entries of one secondary index.
type IndexQuery struct {
	// Prefix is models.IndexPrefix(name, parts...).
	Prefix string

	// Before keeps only keys that sort strictly below Prefix+Before. With
	// time-keyed indexes a bare time key means "created before", and
	// "<time key>:<id>" resumes after that exact entry.
	Before string

	// Limit caps the number of entries; 0 means no cap.
	Limit int

	// Reverse walks from the highest key down (newest first).
	Reverse bool
}

// IndexEntry is one index hit.
type IndexEntry struct {
	Key string
	ID  string
}

// IndexScan walks the entries selected by q and calls fn for each until fn
// returns false. Do not write to the transaction from fn; collect ids and
// act after the scan.
func (tx *Tx) IndexScan(q IndexQuery, fn func(e IndexEntry) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = q.Reverse
	opts.Prefix = []byte(q.Prefix)
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	prefix := []byte(q.Prefix)
	var start []byte
	switch {
	case q.Reverse && q.Before != "":
		// lands on the last key <= prefix+before; an exact match is skipped below
		start = []byte(q.Prefix + q.Before)
	case q.Reverse:
		start = append(append([]byte{}, prefix...), 0xFF)
	default:
		start = prefix
	}
	var stop, skip []byte
	switch {
	case q.Reverse && q.Before != "":
		skip = start
	case q.Before != "":
		stop = []byte(q.Prefix + q.Before)
	}

	n := 0
	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		if err := tx.alive(); err != nil {
			return err
		}
		item := it.Item()
		key := item.KeyCopy(nil)
		if stop != nil && string(key) >= string(stop) {
			return nil
		}
		if skip != nil && string(key) >= string(skip) {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return unavailable(err)
		}
		cont, err := fn(IndexEntry{Key: string(key), ID: string(v)})
		if err != nil {
			return err
		}
		n++
		if !cont || (q.Limit > 0 && n >= q.Limit) {
			return nil
		}
	}
	return nil
}

// IndexIDs collects the ids selected by q.
func (tx *Tx) IndexIDs(q IndexQuery) ([]string, error) {
	var ids []string
	err := tx.IndexScan(q, func(e IndexEntry) (bool, error) {
		ids = append(ids, e.ID)
		return true, nil
	})
	return ids, err
}

// IndexCount counts the entries selected by q.
func (tx *Tx) IndexCount(q IndexQuery) (int, error) {
	n := 0
	err := tx.IndexScan(q, func(IndexEntry) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}
