// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/blazer82/analytodon-sub001/internal/logging"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("record already exists")

	// ErrLocked is returned by New when another process has the database
	// file open for writing.
	ErrLocked = errors.New("database file is locked by another process")
)

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the close error
// is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// isConstraintViolation matches DuckDB primary key and unique errors.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "violates unique constraint") ||
		strings.Contains(msg, "violates primary key constraint")
}

// isTransactionConflict matches DuckDB optimistic concurrency failures.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple deletion")
}

// isLockConflict matches DuckDB's error for a file held by another process.
func isLockConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Could not set lock on file") ||
		strings.Contains(msg, "Conflicting lock is held")
}

// openError wraps a failure to open or initialize the database file.
func openError(path, op string, err error) error {
	if isLockConflict(err) {
		return fmt.Errorf("%w: %s: %v", ErrLocked, path, err)
	}
	return fmt.Errorf("failed to %s database: %w", op, err)
}
