// Package settings exposes runtime configuration stored in system_settings.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-rpc/internal/platform/db"
)

// Well-known keys.
const (
	KeyRPCMaxBatch = "rpc.max_batch"
)

// Settings is an immutable snapshot of system_settings.
type Settings struct {
	values   map[string]string
	loadedAt time.Time
}

// Load reads every row of system_settings.
func Load(ctx context.Context, conn db.DBTX) (*Settings, error) {
	rows, err := conn.Query(ctx, `SELECT key, value FROM system_settings`)
	if err != nil {
		return nil, fmt.Errorf("settings: query: %w", err)
	}
	defer rows.Close()

	values := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("settings: scan: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settings: rows: %w", err)
	}
	return FromMap(values), nil
}

// FromMap builds a snapshot from literal values.
func FromMap(values map[string]string) *Settings {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return &Settings{values: copied, loadedAt: time.Now().UTC()}
}

// Lookup returns the raw value of key.
func (s *Settings) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[strings.ToLower(key)]
	return v, ok
}

// String returns key or def when unset.
func (s *Settings) String(key, def string) string {
	if v, ok := s.Lookup(key); ok {
		return v
	}
	return def
}

// Int returns key parsed as an integer, or def when unset or malformed.
func (s *Settings) Int(key string, def int) int {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns key parsed with strconv.ParseBool, or def.
func (s *Settings) Bool(key string, def bool) bool {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Duration returns key parsed with time.ParseDuration, or def.
func (s *Settings) Duration(key string, def time.Duration) time.Duration {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Keys lists the loaded keys sorted.
func (s *Settings) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadedAt reports when the snapshot was taken.
func (s *Settings) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}
