// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package config loads Seedrunner's runtime configuration through a
// layered koanf pipeline: struct defaults, then an optional YAML file,
// then environment variables, each layer overriding the last. There is
// no live-reload watcher and no per-field encryption here — this
// server's configuration surface (one database DSN, one signing secret,
// a handful of tuning knobs) never grows a credential store or a
// multi-source integration surface that would need either; see
// DESIGN.md for the accounting of what else was dropped and why.
//
// # Quick Start
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variables
//
//	HTTP_ADDR, STORE_DSN, JWT_SECRET, CORS_ORIGINS, LOG_LEVEL, LOG_FORMAT,
//	SWEEPER_INTERVAL, SWEEPER_THRESHOLD, CACHE_DIR, AUTHZ_POLICY_PATH
//
// A config file (config.yaml by default, or $CONFIG_PATH) may set the
// same fields in nested form; see config.go's Config for the field-to-key
// mapping.
package config
