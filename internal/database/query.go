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

	sq "github.com/Masterminds/squirrel"

	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/metrics"
)

// builder emits '?' placeholders, which DuckDB accepts.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const dayLayout = "2006-01-02"

// dayParam binds a calendar day. Only the date part of t is used.
func dayParam(t time.Time) string {
	return t.Format(dayLayout)
}

// DayOf truncates t to its calendar date in loc, returned as UTC midnight.
func DayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// track starts a query timer. Defer the returned func with a pointer to
// the named error result:
//
//	defer track("select", "users", &err)()
func track(operation, table string, errp *error) func() {
	start := time.Now()
	return func() {
		err := *errp
		if errors.Is(err, ErrNotFound) {
			err = nil
		}
		metrics.RecordDBQuery(operation, table, time.Since(start), err)
	}
}

// nullableTime binds a *time.Time as NULL or a UTC timestamp.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// withTx runs fn in a transaction and retries once on a DuckDB write conflict.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = db.runTx(ctx, fn)
		if !isTransactionConflict(err) {
			return err
		}
		logging.Debug().Err(err).Int("attempt", attempt+1).Msg("Retrying transaction after conflict")
	}
	return err
}

func (db *DB) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// execBuilt runs a squirrel statement.
func (db *DB) execBuilt(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return db.conn.ExecContext(ctx, query, args...)
}

// queryBuilt runs a squirrel select.
func (db *DB) queryBuilt(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return db.conn.QueryContext(ctx, query, args...)
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
