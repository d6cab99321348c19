// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package graph maintains the follow relation. Each edge is stored twice,
// once in the follower's Following set and once in the followee's Followers
// set, and both halves are written in one transaction.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/warbler/internal/idset"
	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
)

// Manager edits follow edges.
type Manager struct {
	store    *store.Store
	notifier notify.Publisher
}

// New creates a Manager. A nil notifier discards notifications.
func New(s *store.Store, n notify.Publisher) *Manager {
	if n == nil {
		n = notify.Discard
	}
	return &Manager{store: s, notifier: n}
}

// Follow adds the edge actorID -> targetID. Following someone already
// followed succeeds without change.
func (m *Manager) Follow(ctx context.Context, actorID, targetID string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("follow", start, err) }()
	return m.edit(ctx, "follow", actorID, targetID, idset.Link)
}

// Unfollow removes the edge actorID -> targetID. Removing an edge that does
// not exist succeeds.
func (m *Manager) Unfollow(ctx context.Context, actorID, targetID string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("unfollow", start, err) }()
	return m.edit(ctx, "unfollow", actorID, targetID, idset.Unlink)
}

func (m *Manager) edit(ctx context.Context, op, actorID, targetID string, apply func(idset.Edge) bool) error {
	if actorID == targetID {
		return fmt.Errorf("%s %s: %w", op, targetID, models.ErrSelfReference)
	}

	var (
		changed   bool
		followers int
	)
	err := m.store.Update(ctx, func(tx *store.Tx) error {
		var actor, target models.User
		if err := tx.Get(models.KindUser, actorID, &actor); err != nil {
			return err
		}
		if err := tx.Get(models.KindUser, targetID, &target); err != nil {
			return err
		}

		changed = apply(models.FollowEdge(&actor, &target))
		followers = target.Followers.Len()
		if !changed {
			return nil
		}

		now := time.Now().UTC()
		actor.UpdatedAt = now
		target.UpdatedAt = now
		if err := tx.Put(&actor); err != nil {
			return err
		}
		return tx.Put(&target)
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, targetID, err)
	}

	if changed {
		logging.Ctx(ctx).Debug().
			Str("component", "graph").
			Str("op", op).
			Str("follower_id", actorID).
			Str("followee_id", targetID).
			Int("followers", followers).
			Msg("Follow edge changed")
		m.notifier.Publish(ctx, notify.Notification{
			Topic:   notify.UserTopic(targetID),
			Event:   notify.EventFollowersChanged,
			Payload: notify.FollowersChanged{UserID: targetID, FollowerCount: followers},
		})
	}
	return nil
}

// Followers resolves userID's followers, skipping ids that no longer
// resolve, ordered by handle.
func (m *Manager) Followers(ctx context.Context, userID string) ([]*models.User, error) {
	return m.resolve(ctx, userID, func(u *models.User) []string { return u.Followers.IDs() })
}

// Following resolves the users userID follows.
func (m *Manager) Following(ctx context.Context, userID string) ([]*models.User, error) {
	return m.resolve(ctx, userID, func(u *models.User) []string { return u.Following.IDs() })
}

// IsFollowing reports whether the edge actorID -> targetID exists.
func (m *Manager) IsFollowing(ctx context.Context, actorID, targetID string) (bool, error) {
	var ok bool
	err := m.store.View(ctx, func(tx *store.Tx) error {
		var actor models.User
		if err := tx.Get(models.KindUser, actorID, &actor); err != nil {
			return err
		}
		ok = actor.Following.Has(targetID)
		return nil
	})
	return ok, err
}

func (m *Manager) resolve(ctx context.Context, userID string, side func(*models.User) []string) ([]*models.User, error) {
	var out []*models.User
	err := m.store.View(ctx, func(tx *store.Tx) error {
		var u models.User
		if err := tx.Get(models.KindUser, userID, &u); err != nil {
			return err
		}
		for _, id := range side(&u) {
			var other models.User
			err := tx.Get(models.KindUser, id, &other)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					continue
				}
				return err
			}
			out = append(out, &other)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Handle) < strings.ToLower(out[j].Handle)
	})
	return out, nil
}
