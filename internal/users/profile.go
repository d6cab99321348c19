// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package users

import (
	"context"
	"strings"
	"time"

	"github.com/tomtom215/warbler/internal/metrics"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/store"
	"github.com/tomtom215/warbler/internal/validation"
)

// ProfilePatch lists profile changes. Nil fields are left alone. An empty
// Bio, Website, Location or CoverPhotoURL clears the field; an empty Name or
// PhotoURL is ignored.
type ProfilePatch struct {
	Name          *string `json:"name" validate:"omitempty,max=50"`
	Bio           *string `json:"bio" validate:"omitempty,max=160"`
	Website       *string `json:"website" validate:"omitempty,max=100"`
	Location      *string `json:"location" validate:"omitempty,max=30"`
	PhotoURL      *string `json:"photoURL" validate:"omitempty,max=500"`
	CoverPhotoURL *string `json:"coverPhotoURL" validate:"omitempty,max=500"`
	Theme         *string `json:"theme" validate:"omitempty,oneof=light dim dark"`
	Accent        *string `json:"accent" validate:"omitempty,oneof=blue yellow pink purple orange green"`
}

// UpdateProfile applies p to userID and announces UserUpdated.
func (s *Service) UpdateProfile(ctx context.Context, userID string, p ProfilePatch) (u *models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("update_profile", start, err) }()

	if err := validation.Validate(&p); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(_ *store.Tx, u *models.User) error {
		if p.Name != nil && strings.TrimSpace(*p.Name) != "" {
			u.Name = *p.Name
		}
		if p.PhotoURL != nil && *p.PhotoURL != "" {
			u.PhotoURL = *p.PhotoURL
		}
		setOrClear(&u.Bio, p.Bio)
		setOrClear(&u.Website, p.Website)
		setOrClear(&u.Location, p.Location)
		setOrClear(&u.CoverPhotoURL, p.CoverPhotoURL)
		if p.Theme != nil {
			u.Theme = *p.Theme
		}
		if p.Accent != nil {
			u.Accent = *p.Accent
		}
		return nil
	})
}

func setOrClear(dst, v *string) {
	if v == nil {
		return
	}
	*dst = strings.TrimSpace(*v)
}

// PinTweet pins one of userID's own tweets to their profile.
func (s *Service) PinTweet(ctx context.Context, userID, tweetID string) (u *models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordOperation("pin_tweet", start, err) }()

	return s.mutate(ctx, userID, func(tx *store.Tx, u *models.User) error {
		var t models.Tweet
		if err := tx.Get(models.KindTweet, tweetID, &t); err != nil {
			return err
		}
		if t.AuthorID != u.ID {
			return models.NewValidation("tweetId", "only your own tweets can be pinned")
		}
		u.PinnedTweetID = t.ID
		return nil
	})
}

// UnpinTweet clears the pinned tweet.
func (s *Service) UnpinTweet(ctx context.Context, userID string) (*models.User, error) {
	return s.mutate(ctx, userID, func(_ *store.Tx, u *models.User) error {
		u.PinnedTweetID = ""
		return nil
	})
}

// List pages through users oldest first, leaving out excludeID. total counts
// every user except excludeID.
func (s *Service) List(ctx context.Context, excludeID string, offset, limit int) (out []*models.User, total int, err error) {
	if limit <= 0 {
		return nil, 0, models.NewValidation("limit", "limit must be positive")
	}
	if offset < 0 {
		return nil, 0, models.NewValidation("offset", "offset cannot be negative")
	}

	err = s.store.View(ctx, func(tx *store.Tx) error {
		var ids []string
		err := tx.IndexScan(store.IndexQuery{Prefix: models.IndexPrefix(models.IndexUserCreated)}, func(e store.IndexEntry) (bool, error) {
			if e.ID == excludeID {
				return true, nil
			}
			if total >= offset && len(ids) < limit {
				ids = append(ids, e.ID)
			}
			total++
			return true, nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			var u models.User
			if err := tx.Get(models.KindUser, id, &u); err != nil {
				return err
			}
			out = append(out, &u)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
