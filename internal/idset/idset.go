// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package idset implements the duplicate-free id collections stored on users
// and tweets (followers, following, likers, retweeters, liked and retweeted
// tweet ids).
//
// On disk a Set is an opaque string holding a JSON array, for example
// "[\"u1\",\"u2\"]". Decoding is deliberately forgiving: a missing, null,
// empty or malformed value decodes to an empty set instead of failing the
// read of the whole record.
//
// Two sets that describe the same edge from opposite ends (A.following and
// B.followers, tweet.likerIds and user.likedTweetIds) must only be changed
// through Link and Unlink so that both sides move together.
package idset

import (
	"sort"

	"github.com/goccy/go-json"
)

// Set is an unordered collection of distinct ids. The zero value is empty
// and ready to use.
type Set struct {
	m map[string]struct{}
}

// New returns a set holding ids. Empty strings and duplicates are dropped.
func New(ids ...string) Set {
	s := Set{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether the set changed.
func (s *Set) Add(id string) bool {
	if id == "" {
		return false
	}
	if s.m == nil {
		s.m = make(map[string]struct{})
	}
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether the set changed.
func (s *Set) Remove(id string) bool {
	if _, ok := s.m[id]; !ok {
		return false
	}
	delete(s.m, id)
	return true
}

// Has reports membership.
func (s Set) Has(id string) bool {
	_, ok := s.m[id]
	return ok
}

// Len returns the number of ids.
func (s Set) Len() int {
	return len(s.m)
}

// IDs returns the members in ascending order. Callers must not rely on the
// order carrying any meaning beyond determinism.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s.m))
	for id := range s.m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := Set{m: make(map[string]struct{}, len(s.m))}
	for id := range s.m {
		c.m[id] = struct{}{}
	}
	return c
}

// Equal reports whether both sets hold the same ids.
func (s Set) Equal(o Set) bool {
	if len(s.m) != len(o.m) {
		return false
	}
	for id := range s.m {
		if _, ok := o.m[id]; !ok {
			return false
		}
	}
	return true
}

// Union returns a new set with the members of all sets.
func Union(sets ...Set) Set {
	u := Set{}
	for _, s := range sets {
		for id := range s.m {
			u.Add(id)
		}
	}
	return u
}

// Encode returns the persisted text form: a JSON array of sorted ids.
func Encode(s Set) string {
	b, err := json.Marshal(s.IDs())
	if err != nil {
		// []string always marshals
		return "[]"
	}
	return string(b)
}

// Decode parses the persisted text form. Anything that is not a JSON array
// of strings yields an empty set.
func Decode(text string) Set {
	if text == "" {
		return Set{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(text), &ids); err != nil {
		return Set{}
	}
	return New(ids...)
}

// MarshalJSON writes the set as a JSON string wrapping the encoded array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(Encode(s))
}

// UnmarshalJSON accepts the string form written by MarshalJSON, a bare
// array, or null. It never fails; unreadable input leaves the set empty.
func (s *Set) UnmarshalJSON(data []byte) error {
	*s = Set{}
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return nil
		}
		*s = Decode(text)
	case '[':
		*s = Decode(string(data))
	}
	return nil
}
