// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package sweeper implements the inactivity sweep (C10): a fixed-cadence
// background service that force-abandons participants whose in-game time
// has stopped advancing while their race is still RUNNING. It never
// mutates state directly — every abandon is routed through the owning
// race room's single-writer queue via ApplyAbandon, so the sweeper is
// just another external caller of that queue, identical in shape to the
// HTTP control surface.
package sweeper
