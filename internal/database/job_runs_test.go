// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"context"
	"testing"
	"time"
)

func TestJobPeriods(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	got, err := db.LastJobPeriod(ctx, "send-weekly-stats")
	if err != nil || got != "" {
		t.Fatalf("LastJobPeriod() on empty table = %q, %v", got, err)
	}

	at := time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC)
	if err := db.RecordJobPeriod(ctx, "send-weekly-stats", "2026-W12", at); err != nil {
		t.Fatalf("RecordJobPeriod() error = %v", err)
	}
	if err := db.RecordJobPeriod(ctx, "send-weekly-stats", "2026-W13", at.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("RecordJobPeriod() second error = %v", err)
	}

	got, err = db.LastJobPeriod(ctx, "send-weekly-stats")
	if err != nil {
		t.Fatalf("LastJobPeriod() error = %v", err)
	}
	if got != "2026-W13" {
		t.Errorf("LastJobPeriod() = %q, want 2026-W13", got)
	}
}
