package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Marker names recorded by the operations layer.
const (
	MarkerLastBuild = "last_build"
	MarkerLastSync  = "last_sync"
)

// ManagerMarker returns the per-manager last sync marker name.
func ManagerMarker(manager string) string {
	return MarkerLastSync + "_" + manager
}

// GetSetting decodes the JSON value stored under key into dest. It reports
// false when the key is absent.
func (s *Store) GetSetting(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// PutSetting stores value as JSON under key.
func (s *Store) PutSetting(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(encoded), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes key, reverting it to the configured default.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.exec(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// Mark records that the named event happened at t.
func (s *Store) Mark(ctx context.Context, name string, t time.Time) error {
	_, err := s.exec(ctx,
		`INSERT INTO markers (name, at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET at = excluded.at`,
		name, formatTime(t))
	if err != nil {
		return fmt.Errorf("write marker %s: %w", name, err)
	}
	return nil
}

// Markers returns every recorded marker.
func (s *Store) Markers(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, at FROM markers")
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	defer rows.Close()

	markers := make(map[string]time.Time)
	for rows.Next() {
		var name, at string
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		markers[name] = parseTime(at)
	}
	return markers, rows.Err()
}
