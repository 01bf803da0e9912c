// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LastJobPeriod returns the period key recorded by the last successful run
// of job, or "" if it never ran.
func (db *DB) LastJobPeriod(ctx context.Context, job string) (period string, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "job_runs", &err)()

	err = db.conn.QueryRowContext(ctx, `SELECT period FROM job_runs WHERE job = ?`, job).Scan(&period)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read job run: %w", err)
	}
	return period, nil
}

// RecordJobPeriod stores the period key of a completed run.
func (db *DB) RecordJobPeriod(ctx context.Context, job, period string, at time.Time) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("upsert", "job_runs", &err)()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO job_runs (job, period, ran_at) VALUES (?, ?, ?)
		ON CONFLICT (job) DO UPDATE SET period = excluded.period, ran_at = excluded.ran_at`,
		job, period, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record job run: %w", err)
	}
	return nil
}
