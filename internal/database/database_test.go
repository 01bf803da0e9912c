// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

// testDBSemaphore serializes DuckDB use across tests. The slot is held for
// the whole test, not just for New.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(&config.DatabaseConfig{
		Path:        ":memory:",
		MaxMemory:   "512MB",
		SkipIndexes: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func day(s string) time.Time {
	d, err := time.Parse(dayLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustCreateUser(t *testing.T, db *DB, id, email string) *models.User {
	t.Helper()
	u := &models.User{
		ID:                 id,
		Email:              email,
		PasswordHash:       "hash",
		IsActive:           true,
		EmailNotifications: models.EmailNotifications{WeeklyStats: true, News: true},
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s) error = %v", id, err)
	}
	return u
}

func mustCreateAccount(t *testing.T, db *DB, id, ownerID string) *models.Account {
	t.Helper()
	a := &models.Account{
		ID:        id,
		OwnerID:   ownerID,
		ServerURL: "https://mastodon.social",
		Timezone:  "Europe/Berlin",
	}
	if err := db.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount(%s) error = %v", id, err)
	}
	return a
}

func TestNew_SchemaAndMigrations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != len(migrations) {
		t.Errorf("SchemaVersion() = %d, want %d", version, len(migrations))
	}

	history, err := db.MigrationHistory(ctx)
	if err != nil {
		t.Fatalf("MigrationHistory() error = %v", err)
	}
	if len(history) != len(migrations) || history[0].Name != "backfill_user_timezone" {
		t.Errorf("MigrationHistory() = %+v", history)
	}

	// A second run must be a no-op.
	if err := db.runVersionedMigrations(); err != nil {
		t.Fatalf("second runVersionedMigrations() error = %v", err)
	}
}

func TestEnsureContext(t *testing.T) {
	t.Parallel()
	db := &DB{}

	ctx, cancel := db.ensureContext(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected default deadline")
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Minute)
	defer parentCancel()
	ctx2, cancel2 := db.ensureContext(parent)
	defer cancel2()
	if ctx2 != parent {
		t.Error("context with deadline should be returned unchanged")
	}
}

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err        error
		constraint bool
		conflict   bool
	}{
		{nil, false, false},
		{errors.New(`Constraint Error: Duplicate key "email: a@b.c" violates unique constraint.`), true, false},
		{errors.New(`Constraint Error: Duplicate key "id: 1" violates primary key constraint.`), true, false},
		{errors.New("TransactionContext Error: Transaction conflict: cannot update"), false, true},
		{errors.New("something else"), false, false},
	}
	for _, tt := range tests {
		if got := isConstraintViolation(tt.err); got != tt.constraint {
			t.Errorf("isConstraintViolation(%v) = %v", tt.err, got)
		}
		if got := isTransactionConflict(tt.err); got != tt.conflict {
			t.Errorf("isTransactionConflict(%v) = %v", tt.err, got)
		}
	}

	locked := openError("/data/a.duckdb", "open", errors.New(`IO Error: Could not set lock on file "/data/a.duckdb": Conflicting lock is held in /usr/bin/server (PID 7)`))
	if !errors.Is(locked, ErrLocked) {
		t.Errorf("openError(lock conflict) = %v, want ErrLocked", locked)
	}
	if other := openError("/data/a.duckdb", "open", errors.New("disk full")); errors.Is(other, ErrLocked) {
		t.Errorf("openError(disk full) = %v, want no ErrLocked", other)
	}
}

// holdDBEnv makes the test binary act as a second process that keeps the
// database file open.
const holdDBEnv = "ANALYTODON_TEST_HOLD_DB"

func TestNew_LockedByOtherProcess(t *testing.T) {
	if path := os.Getenv(holdDBEnv); path != "" {
		db, err := New(&config.DatabaseConfig{Path: path, MaxMemory: "256MB", SkipIndexes: true})
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		fmt.Println("ready")
		_, _ = io.Copy(io.Discard, os.Stdin)
		_ = db.Close()
		os.Exit(0)
	}
	if testing.Short() {
		t.Skip("starts a second process")
	}

	path := filepath.Join(t.TempDir(), "analytodon.duckdb")
	cmd := exec.Command(os.Args[0], "-test.run=^TestNew_LockedByOtherProcess$")
	cmd.Env = append(os.Environ(), holdDBEnv+"="+path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = stdin.Close()
		_ = cmd.Wait()
	})

	line, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil || strings.TrimSpace(line) != "ready" {
		t.Fatalf("holder process: %q, %v", line, err)
	}

	db, err := New(&config.DatabaseConfig{Path: path, MaxMemory: "256MB", SkipIndexes: true})
	if err == nil {
		_ = db.Close()
		t.Fatal("New() opened a database held by another process")
	}
	if !errors.Is(err, ErrLocked) {
		t.Errorf("New() error = %v, want ErrLocked", err)
	}
}

func TestDayOf(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 23:30 UTC on Jan 1 is already Jan 2 in Berlin.
	ts := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)
	if got := DayOf(ts, berlin); !got.Equal(day("2026-01-02")) {
		t.Errorf("DayOf() = %v, want 2026-01-02", got)
	}
	if got := DayOf(ts, time.UTC); !got.Equal(day("2026-01-01")) {
		t.Errorf("DayOf(UTC) = %v, want 2026-01-01", got)
	}
}
