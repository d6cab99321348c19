// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package users registers accounts and edits profiles. A user and its
// EngagementIndex are always created together.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/notify"
	"github.com/tomtom215/warbler/internal/store"
	"github.com/tomtom215/warbler/internal/validation"
)

// Identity is what the identity provider vouches for.
type Identity struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=50"`
	PhotoURL string `json:"picture" validate:"max=500"`
}

// Service manages users.
type Service struct {
	store    *store.Store
	notifier notify.Publisher
	handles  *handleGenerator
}

// New creates a Service. A nil notifier discards notifications.
func New(s *store.Store, n notify.Publisher) *Service {
	if n == nil {
		n = notify.Discard
	}
	return &Service{store: s, notifier: n, handles: newHandleGenerator()}
}

// Register returns the user registered under id.Email, creating it with a
// generated handle on first login. created reports whether a user was made.
func (s *Service) Register(ctx context.Context, id Identity) (u *models.User, created bool, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("register", start, err) }()

	id.Email = strings.TrimSpace(id.Email)
	if err := validation.Validate(&id); err != nil {
		return nil, false, err
	}

	u, created, err = s.register(ctx, id)
	if errors.Is(err, store.ErrUniqueViolation) || errors.Is(err, models.ErrConflict) {
		// someone registered the same email concurrently
		if existing, lookupErr := s.byEmail(ctx, id.Email); lookupErr == nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("register %s: %w", id.Email, err)
	}
	if created {
		logging.Ctx(ctx).Info().Str("user_id", u.ID).Str("username", u.Handle).Msg("User registered")
	}
	return u, created, nil
}

func (s *Service) register(ctx context.Context, id Identity) (*models.User, bool, error) {
	var (
		u       *models.User
		created bool
	)
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		existing, err := lookup(tx, models.IndexKey(models.IndexUserEmail, strings.ToLower(id.Email)))
		if err != nil {
			return err
		}
		if existing != nil {
			u = existing
			return nil
		}

		handle, err := s.handles.generate(tx, baseName(id))
		if err != nil {
			return err
		}

		name := id.Name
		if name == "" {
			name = "User"
		}
		now := time.Now().UTC()
		u = &models.User{
			ID:        uuid.NewString(),
			Name:      name,
			Handle:    handle,
			Email:     id.Email,
			PhotoURL:  id.PhotoURL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Put(u); err != nil {
			return err
		}
		created = true
		return tx.Put(&models.EngagementIndex{UserID: u.ID, UpdatedAt: now})
	})
	return u, created, err
}

func (s *Service) byEmail(ctx context.Context, email string) (*models.User, error) {
	var u *models.User
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		u, err = lookup(tx, models.IndexKey(models.IndexUserEmail, strings.ToLower(email)))
		if err == nil && u == nil {
			err = models.NewNotFound(models.KindUser, email)
		}
		return err
	})
	return u, err
}

// lookup resolves a unique index key to its user, or nil.
func lookup(tx *store.Tx, key string) (*models.User, error) {
	id, err := tx.Lookup(key)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u models.User
	err = tx.Get(models.KindUser, id, &u)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.store.View(ctx, func(tx *store.Tx) error {
		return tx.Get(models.KindUser, id, &u)
	}); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByHandle loads a user by handle, ignoring case.
func (s *Service) GetByHandle(ctx context.Context, handle string) (*models.User, error) {
	var u *models.User
	err := s.store.View(ctx, func(tx *store.Tx) error {
		var err error
		u, err = lookup(tx, models.IndexKey(models.IndexUserHandle, strings.ToLower(handle)))
		if err == nil && u == nil {
			err = models.NewNotFound(models.KindUser, handle)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// HandleAvailable reports whether nobody holds handle.
func (s *Service) HandleAvailable(ctx context.Context, handle string) (bool, error) {
	var free bool
	err := s.store.View(ctx, func(tx *store.Tx) error {
		_, err := tx.Lookup(models.IndexKey(models.IndexUserHandle, strings.ToLower(handle)))
		if errors.Is(err, models.ErrNotFound) {
			free = true
			return nil
		}
		return err
	})
	return free, err
}

// ChangeUsername gives userID a new handle. The old handle is released in
// the same commit.
func (s *Service) ChangeUsername(ctx context.Context, userID, handle string) (u *models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("change_username", start, err) }()

	if err := checkHandle(handle); err != nil {
		return nil, err
	}

	u, err = s.mutate(ctx, userID, func(tx *store.Tx, u *models.User) error {
		if strings.EqualFold(u.Handle, handle) {
			return models.NewValidation("username", "new username cannot be the same as the current one")
		}
		owner, err := tx.Lookup(models.IndexKey(models.IndexUserHandle, strings.ToLower(handle)))
		switch {
		case err == nil && owner != u.ID:
			return models.NewValidation("username", "username is already taken")
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return err
		}
		u.Handle = handle
		return nil
	})
	if errors.Is(err, store.ErrUniqueViolation) {
		return nil, models.NewValidation("username", "username is already taken")
	}
	return u, err
}

func checkHandle(handle string) error {
	n := len([]rune(handle))
	switch {
	case n < models.HandleMinLength || n > models.HandleMaxLength:
		return models.NewValidation("username", fmt.Sprintf("username must be between %d-%d characters", models.HandleMinLength, models.HandleMaxLength))
	case !validation.ValidUsername(handle) && !wordOnly(handle):
		return models.NewValidation("username", "username can only contain letters, numbers, and underscores")
	case !validation.ValidUsername(handle):
		return models.NewValidation("username", "username must contain at least one letter")
	}
	return nil
}

func wordOnly(s string) bool {
	for _, r := range s {
		if !isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// mutate loads userID, applies fn, writes the result and announces it.
func (s *Service) mutate(ctx context.Context, userID string, fn func(tx *store.Tx, u *models.User) error) (*models.User, error) {
	var u models.User
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.Get(models.KindUser, userID, &u); err != nil {
			return err
		}
		if err := fn(tx, &u); err != nil {
			return err
		}
		u.UpdatedAt = time.Now().UTC()
		return tx.Put(&u)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(ctx, notify.Notification{
		Topic:   notify.UserTopic(u.ID),
		Event:   notify.EventUserUpdated,
		Payload: u,
	})
	return &u, nil
}
