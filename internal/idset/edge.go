// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package idset

// Edge names the two sets that store one relation, one per endpoint.
//
// For a follow A->B, Out is A.following and In is B.followers. For a like by
// U on T, Out is U's liked tweet ids and In is T.likerIds.
type Edge struct {
	Out   *Set
	OutID string // id stored in In
	In    *Set
	InID  string // id stored in Out
}

// Link records the edge on both sides and reports whether either side
// changed. A half-present edge is repaired.
func Link(e Edge) bool {
	a := e.Out.Add(e.InID)
	b := e.In.Add(e.OutID)
	return a || b
}

// Unlink removes the edge from both sides and reports whether either side
// changed.
func Unlink(e Edge) bool {
	a := e.Out.Remove(e.InID)
	b := e.In.Remove(e.OutID)
	return a || b
}

// Linked reports whether both sides hold the edge.
func Linked(e Edge) bool {
	return e.Out.Has(e.InID) && e.In.Has(e.OutID)
}
