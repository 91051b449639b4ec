package state

import (
	"context"
	"fmt"
	"time"
)

// BuildRun is one persisted exclusion build.
type BuildRun struct {
	ID             int64     `json:"id"`
	Trigger        string    `json:"trigger,omitempty"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	TotalWritten   int       `json:"total_written"`
	CandidateCount int       `json:"candidate_count"`
	SkippedCount   int       `json:"skipped_count"`
	SourceErrors   int       `json:"source_errors"`
	OutputPath     string    `json:"output_path,omitempty"`
}

// Duration returns how long the build took.
func (r BuildRun) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RecordBuild appends run to the history and returns its id.
func (s *Store) RecordBuild(ctx context.Context, run BuildRun) (int64, error) {
	res, err := s.exec(ctx,
		`INSERT INTO build_runs
		 (triggered_by, status, message, started_at, finished_at, total_written, candidate_count, skipped_count, source_errors, output_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Trigger, run.Status, run.Message, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.TotalWritten, run.CandidateCount, run.SkippedCount, run.SourceErrors, run.OutputPath)
	if err != nil {
		return 0, fmt.Errorf("record build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("build id: %w", err)
	}
	return id, nil
}

// RecentBuilds returns up to limit runs, newest first.
func (s *Store) RecentBuilds(ctx context.Context, limit int) ([]BuildRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, triggered_by, status, message, started_at, finished_at, total_written, candidate_count,
		        skipped_count, source_errors, output_path
		 FROM build_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var runs []BuildRun
	for rows.Next() {
		var (
			run               BuildRun
			started, finished string
		)
		if err := rows.Scan(&run.ID, &run.Trigger, &run.Status, &run.Message, &started, &finished,
			&run.TotalWritten, &run.CandidateCount, &run.SkippedCount, &run.SourceErrors, &run.OutputPath); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneBuilds keeps the newest keep runs.
func (s *Store) PruneBuilds(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.exec(ctx,
		`DELETE FROM build_runs WHERE id NOT IN (SELECT id FROM build_runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune builds: %w", err)
	}
	return res.RowsAffected()
}
