// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

/*
Package authz decides what a role may do, using a Casbin RBAC model.

Subjects are roles taken from the bearer token, not user ids. The embedded
policy grants:

	user   tweet create, tweet delete_own
	admin  everything user has, plus tweet moderate and sweep manage

"tweet moderate" is the privileged capability: it raises the tweet length
limit and allows deleting tweets written by others. It is evaluated once
per request and carried on models.Actor.

A different policy can be supplied with CASBIN_POLICY_PATH; the model file
stays embedded unless EnforcerConfig.ModelPath is set.
*/
package authz
