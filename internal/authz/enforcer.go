// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package authz decides which role may call which API route. Ownership of
// individual accounts is checked by the accounts service.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/logging"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Enforcer wraps a casbin SyncedEnforcer with a decision cache.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
}

// NewEnforcer loads the model and policy from cfg paths when they exist,
// otherwise the embedded defaults.
func NewEnforcer(cfg *config.AuthzConfig) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	logging.Debug().Str("model", cfg.ModelPath).Str("policy", cfg.PolicyPath).Msg("Authorization enforcer ready")
	return &Enforcer{enforcer: enforcer, cache: newDecisionCache(cfg.CacheTTL)}, nil
}

// loadPolicy adds "p, sub, obj, act" and "g, user, role" lines.
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce reports whether role may perform action on path.
func (e *Enforcer) Enforce(role, path, action string) (bool, error) {
	if allowed, ok := e.cache.get(role, path, action); ok {
		return allowed, nil
	}

	allowed, err := e.enforcer.Enforce(role, path, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	e.cache.set(role, path, action, allowed)
	return allowed, nil
}

// Close stops the cache janitor.
func (e *Enforcer) Close() {
	e.cache.stop()
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// decisionCache memoizes Enforce results for ttl.
type decisionCache struct {
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[string]decision
	stopChan chan struct{}
	stopOnce sync.Once
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &decisionCache{ttl: ttl, items: make(map[string]decision), stopChan: make(chan struct{})}
	go c.janitor()
	return c
}

func cacheKey(role, path, action string) string {
	return role + "\x00" + path + "\x00" + action
}

func (c *decisionCache) get(role, path, action string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, found := c.items[cacheKey(role, path, action)]
	if !found || time.Now().After(d.expiresAt) {
		return false, false
	}
	return d.allowed, true
}

func (c *decisionCache) set(role, path, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(role, path, action)] = decision{allowed: allowed, expiresAt: time.Now().Add(c.ttl)}
}

func (c *decisionCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *decisionCache) janitor() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for k, d := range c.items {
				if now.After(d.expiresAt) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *decisionCache) stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}
