// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

// Package validation wraps go-playground/validator v10 with a shared,
// lazily built validator and Warbler's custom rules.
//
// Struct tags drive the checks:
//
//	type ProfilePatch struct {
//	    Name  *string `json:"name" validate:"omitempty,max=50"`
//	    Theme *string `json:"theme" validate:"omitempty,oneof=light dim dark"`
//	}
//
//	if err := validation.Validate(&patch); err != nil {
//	    return err // errors.Is(err, models.ErrValidation)
//	}
//
// Custom tags:
//   - username: 4-15 characters from [A-Za-z0-9_], at least one letter
//
// Messages name fields by their json tag. String lengths are counted in code
// points, which is also how tweet text limits are measured.
//
// The HTTP layer turns a *RequestValidationError into the response envelope
// with ToAPIError (code VALIDATION_FAILED).
package validation
