package state

import (
	"context"
	"fmt"
	"time"

	"moversync/internal/media"
)

// ReplaceTags swaps the cached tag list for manager.
func (s *Store) ReplaceTags(ctx context.Context, manager string, tags []media.Tag, refreshedAt time.Time) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tag tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE manager = ?", manager); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		stamp := formatTime(refreshedAt)
		for _, tag := range tags {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO tags (manager, id, label, refreshed_at) VALUES (?, ?, ?, ?)",
				manager, tag.ID, tag.Label, stamp); err != nil {
				return fmt.Errorf("insert tag %d: %w", tag.ID, err)
			}
		}
		return tx.Commit()
	})
}

// Tags returns the cached tags for manager ordered by id and the time they
// were refreshed. The time is zero when nothing is cached.
func (s *Store) Tags(ctx context.Context, manager string) ([]media.Tag, time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, label, refreshed_at FROM tags WHERE manager = ? ORDER BY id", manager)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var (
		tags      []media.Tag
		refreshed time.Time
	)
	for rows.Next() {
		var (
			tag   media.Tag
			stamp string
		)
		if err := rows.Scan(&tag.ID, &tag.Label, &stamp); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan tag: %w", err)
		}
		if at := parseTime(stamp); at.After(refreshed) {
			refreshed = at
		}
		tags = append(tags, tag)
	}
	return tags, refreshed, rows.Err()
}
