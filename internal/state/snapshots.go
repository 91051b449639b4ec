package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SnapshotMoverStats names the latest parsed mover statistics.
const SnapshotMoverStats = "mover_stats"

// SaveSnapshot stores value as the named JSON snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, name string, value any, at time.Time) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", name, err)
	}
	_, err = s.exec(ctx,
		`INSERT INTO snapshots (name, payload, recorded_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, recorded_at = excluded.recorded_at`,
		name, string(encoded), formatTime(at))
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot decodes the named snapshot into dest and returns when it was
// recorded. It reports false when no snapshot exists.
func (s *Store) LoadSnapshot(ctx context.Context, name string, dest any) (time.Time, bool, error) {
	var payload, at string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, recorded_at FROM snapshots WHERE name = ?", name).Scan(&payload, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return time.Time{}, false, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return parseTime(at), true, nil
}
