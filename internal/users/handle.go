// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package users

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/store"
)

const handleAttempts = 100

type handleGenerator struct {
	// suffix returns a number in [1000, 9999].
	suffix func() int
}

func newHandleGenerator() *handleGenerator {
	return &handleGenerator{suffix: func() int { return 1000 + rand.IntN(9000) }}
}

// baseName picks the handle stem: the display name, else the email's local
// part, reduced to word characters and starting with a letter.
func baseName(id Identity) string {
	src := id.Name
	if src == "" {
		src, _, _ = strings.Cut(id.Email, "@")
	}
	var b strings.Builder
	for _, r := range src {
		if isWordRune(r) {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		clean = "user"
	}
	if !unicode.IsLetter(rune(clean[0])) {
		clean = "u" + clean
	}
	return clean
}

// generate finds a free handle inside tx so the choice is checked by the
// same commit that claims it.
func (g *handleGenerator) generate(tx *store.Tx, base string) (string, error) {
	for i := 0; i < handleAttempts; i++ {
		h := truncate(strings.ToLower(base+strconv.Itoa(g.suffix())), models.HandleMaxLength)
		free, err := handleFree(tx, h)
		if err != nil {
			return "", err
		}
		if free {
			return h, nil
		}
	}
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return truncate(strings.ToLower(base+hex[:8]), models.HandleMaxLength), nil
}

func handleFree(tx *store.Tx, h string) (bool, error) {
	_, err := tx.Lookup(models.IndexKey(models.IndexUserHandle, h))
	if errors.Is(err, models.ErrNotFound) {
		return true, nil
	}
	return false, err
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
