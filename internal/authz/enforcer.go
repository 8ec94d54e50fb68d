// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package authz

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// EnforcerConfig configures the role enforcer.
type EnforcerConfig struct {
	// PolicyPath, if set, loads and persists policy from this CSV file
	// instead of the embedded default. Used to add admin-role grants
	// without a redeploy.
	PolicyPath string

	// CacheTTL caches enforcement decisions for this long; zero disables
	// caching.
	CacheTTL time.Duration
}

// DefaultEnforcerConfig returns the default configuration: embedded
// policy, 5 minute decision cache.
func DefaultEnforcerConfig() *EnforcerConfig {
	return &EnforcerConfig{CacheTTL: 5 * time.Minute}
}

// Enforcer wraps a casbin.SyncedEnforcer with a decision cache.
type Enforcer struct {
	config   *EnforcerConfig
	enforcer *casbin.SyncedEnforcer
	cache    *enforcementCache
}

// NewEnforcer builds an Enforcer from the embedded RBAC model, loading
// policy from config.PolicyPath if set, otherwise from the embedded
// default.
func NewEnforcer(config *EnforcerConfig) (*Enforcer, error) {
	if config == nil {
		config = DefaultEnforcerConfig()
	}

	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("authz: load model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" {
		adapter := fileadapter.NewAdapter(config.PolicyPath)
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("authz: create enforcer: %w", err)
	}

	e := &Enforcer{config: config, enforcer: enforcer}
	if config.CacheTTL > 0 {
		e.cache = newEnforcementCache(config.CacheTTL)
	}
	return e, nil
}

func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		ptype, rule := parts[0], parts[1:]
		switch ptype {
		case "p":
			if len(rule) >= 3 {
				if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
					return fmt.Errorf("add policy %v: %w", rule, err)
				}
			}
		case "g":
			if len(rule) >= 2 {
				if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
					return fmt.Errorf("add grouping policy %v: %w", rule, err)
				}
			}
		}
	}
	return nil
}

// Enforce checks whether subject may perform act on obj under the role
// policy alone (no ownership fast path; see Authorizer.Allow for that).
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(subject, object, action); ok {
			return allowed, nil
		}
	}
	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce: %w", err)
	}
	if e.cache != nil {
		e.cache.set(subject, object, action, allowed)
	}
	return allowed, nil
}

// AddRoleForUser grants subject the given role (e.g. "admin").
func (e *Enforcer) AddRoleForUser(subject, role string) (bool, error) {
	added, err := e.enforcer.AddGroupingPolicy(subject, role)
	if err != nil {
		return false, fmt.Errorf("authz: add role: %w", err)
	}
	if e.cache != nil {
		e.cache.invalidateUser(subject)
	}
	return added, nil
}

// RemoveRoleForUser revokes a previously granted role.
func (e *Enforcer) RemoveRoleForUser(subject, role string) (bool, error) {
	removed, err := e.enforcer.RemoveGroupingPolicy(subject, role)
	if err != nil {
		return false, fmt.Errorf("authz: remove role: %w", err)
	}
	if e.cache != nil {
		e.cache.invalidateUser(subject)
	}
	return removed, nil
}
