// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/warbler/internal/auth"
	"github.com/tomtom215/warbler/internal/logging"
	"github.com/tomtom215/warbler/internal/models"
	"github.com/tomtom215/warbler/internal/store"
	"github.com/tomtom215/warbler/internal/tweets"
	"github.com/tomtom215/warbler/internal/validation"
)

// errorStatus maps an engine error onto status, code and client message.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, auth.ErrNoCredentials):
		return http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"
	case errors.Is(err, auth.ErrExpiredCredentials):
		return http.StatusUnauthorized, ErrCodeUnauthorized, "Token expired"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid token"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, notFoundMessage(err)
	case errors.Is(err, models.ErrSelfReference):
		return http.StatusBadRequest, ErrCodeBadRequest, "Cannot target yourself"
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, ErrCodeValidationFailed, validationMessage(err)
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, ErrCodeConflict, "Concurrent update, please retry"
	case errors.Is(err, models.ErrTooLarge):
		return http.StatusInternalServerError, ErrCodeInternalError, "Operation too large to commit"
	case errors.Is(err, models.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Storage temporarily unavailable"
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "Internal server error"
	}
}

func notFoundMessage(err error) string {
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		return fmt.Sprintf("%s not found", nf.Kind)
	}
	return "Not found"
}

func validationMessage(err error) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var rve *validation.RequestValidationError
	if errors.As(err, &rve) {
		return rve.ToAPIError().Message
	}
	// unique index violations carry key text; keep it out of responses
	if errors.Is(err, store.ErrUniqueViolation) {
		return "value already in use"
	}
	return err.Error()
}

func validationDetails(err error) interface{} {
	var rve *validation.RequestValidationError
	if errors.As(err, &rve) {
		return rve.ToAPIError().Details
	}
	var ve *models.ValidationError
	if errors.As(err, &ve) && ve.Field != "" {
		return map[string]interface{}{"field": ve.Field}
	}
	return nil
}

// writeError writes the envelope for err. Server-side failures are logged;
// client errors are not.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := errorStatus(err)
	rw := NewResponseWriter(w, r)

	if status >= http.StatusInternalServerError || status == http.StatusConflict {
		logging.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("Request failed")
	}
	if status == http.StatusUnauthorized {
		rw.Unauthorized(message)
		return
	}
	if code == ErrCodeValidationFailed {
		rw.ErrorWithDetails(status, code, message, validationDetails(err))
		return
	}
	rw.Error(status, code, message)
}

// writeDeclined answers a delete the coordinator refused.
func writeDeclined(w http.ResponseWriter, r *http.Request, reason tweets.DeclineReason) {
	rw := NewResponseWriter(w, r)
	if reason == tweets.ReasonNotFound {
		rw.NotFound("tweet not found")
		return
	}
	rw.Forbidden("only the author or a moderator can delete this tweet")
}
