// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

/*
Package api is Warbler's HTTP surface: a chi router over the engine
packages, with every JSON response in one envelope.

	{"success": true, "data": ..., "meta": {"request_id": ..., "pagination": ...}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": ..., "request_id": ...}}

Error mapping:

	models.ErrNotFound         404 NOT_FOUND
	models.ErrValidation       400 VALIDATION_FAILED
	models.ErrSelfReference    400 BAD_REQUEST
	declined delete            403 FORBIDDEN (404 when the tweet is gone)
	models.ErrConflict         409 CONFLICT, after store.conflict_retries attempts
	models.ErrStoreUnavailable 503 SERVICE_UNAVAILABLE
	models.ErrTooLarge         500 INTERNAL_ERROR

Mutating handlers wrap the engine call in store.RetryConflicts. Engine
packages never retry by themselves.

Timeline pages are keyset paginated: pass meta.pagination.next_cursor back
as ?before= to get the next page.
*/
package api
