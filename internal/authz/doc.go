// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package authz answers one question for the control surface (C9): may
// this subject perform this action on this race?
//
// Ownership is the common case and needs no policy lookup at all: a race
// has exactly one organizer_id, and an organizer may always act
// on a race they created. Casbin sits behind that fast path to cover the
// one case ownership can't: a small set of platform operators grouped
// under the "admin" role who may act on any race for moderation, support,
// or incident response. The model and policy are Seedrunner's own: a
// race/action permission shape has nothing in common with a path-based
// resource hierarchy, so only the enforcer/cache wrapper shape is
// reused, not any model.conf or policy.csv content.
package authz
