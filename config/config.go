// Package config wraps the store's config table with the recognized
// keys and defaults of §3, mirroring the Python original's
// queuectl/config.py ConfigManager: explicit keys still fall back to a
// hardcoded default rather than silently returning an empty value.
package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/queuectl/queuectl/store"
)

// Defaults holds the recognized-key fallbacks of §3, used whenever a
// key has never been explicitly set via SetConfig/"config set".
var Defaults = map[string]string{
	"max_retries":                         "3",
	"backoff_base":                        "2",
	"poll_interval_ms":                    "500",
	"db_path":                             ".data/queuectl.db",
	"worker_heartbeat_interval_seconds":   "5",
	"stale_worker_timeout_seconds":        "30",
	"default_timeout_seconds":             "",
	"log_dir":                             "",
	"max_concurrent_processes_per_worker": "1",
}

// Manager reads and writes the config table, applying Defaults for
// unset keys.
type Manager struct {
	store store.Store
}

// New wraps a Store.
func New(s store.Store) *Manager {
	return &Manager{store: s}
}

// Get returns the effective value for key: the explicitly stored
// value if set, else its recognized default, else "".
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	val, ok, err := m.store.GetConfig(ctx, key)
	if err != nil {
		return "", fmt.Errorf("config: get %s: %w", key, err)
	}
	if ok {
		return val, nil
	}
	return Defaults[key], nil
}

// Set stores an explicit (key, value) override.
func (m *Manager) Set(ctx context.Context, key, value string) error {
	if err := m.store.SetConfig(ctx, key, value); err != nil {
		return fmt.Errorf("config: set %s: %w", key, err)
	}
	return nil
}

// List returns every recognized key with its effective value
// (explicit override or default), plus any unrecognized keys that
// were explicitly set.
func (m *Manager) List(ctx context.Context) (map[string]string, error) {
	explicit, err := m.store.ListConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("config: list: %w", err)
	}
	out := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		out[k] = v
	}
	for k, v := range explicit {
		out[k] = v
	}
	return out, nil
}

// GetUint32 reads key as an effective value, returning def if unset or
// unparseable as a non-negative integer.
func (m *Manager) GetUint32(ctx context.Context, key string, def uint32) (uint32, error) {
	val, err := m.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if val == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return def, nil
	}
	return uint32(n), nil
}

// GetDuration reads key as an effective value interpreted in the unit
// given by unit, returning 0 if unset.
func (m *Manager) GetDuration(ctx context.Context, key string, unit time.Duration) (time.Duration, error) {
	val, err := m.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if val == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, nil
	}
	return time.Duration(n) * unit, nil
}

// GetOptionalUint32 reads key as an effective value, returning nil if
// unset (the config's explicit "null" sentinel: default_timeout_seconds
// and similarly-optional keys use "" to mean unset).
func (m *Manager) GetOptionalUint32(ctx context.Context, key string) (*uint32, error) {
	val, err := m.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return nil, nil
	}
	v := uint32(n)
	return &v, nil
}
