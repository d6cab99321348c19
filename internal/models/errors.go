// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

/*
Package models holds the persisted records (User, Tweet, EngagementIndex,
Bookmark) and the error values shared by every engine package.

Error taxonomy:
  - ErrNotFound: a referenced record does not exist. Not retried.
  - ErrValidation: malformed input. Not retried unchanged.
  - ErrSelfReference: an operation aimed at the acting user where that is disallowed.
  - ErrConflict: the store detected a concurrent write. Retry the whole operation from a fresh read.
  - ErrStoreUnavailable: transient infrastructure failure, including commit timeouts. Retry with backoff.
  - ErrTooLarge: the operation writes more than one commit can hold. Not retried.

Authorization failures are not errors; see tweets.DeleteOutcome.
*/
package models

import (
	"errors"
	"fmt"
)

// Sentinel errors. Match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrSelfReference    = errors.New("operation cannot target the acting user")
	ErrConflict         = errors.New("concurrent write conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTooLarge         = errors.New("operation too large for one commit")
)

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound returns a *NotFoundError.
func NewNotFound(kind Kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidation returns a *ValidationError.
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsRetryable reports whether the caller may retry the whole operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreUnavailable)
}
