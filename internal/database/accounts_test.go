// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/models"
)

func TestAccounts_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustCreateUser(t, db, "u1", "owner@example.com")
	a := mustCreateAccount(t, db, "a1", "u1")
	mustCreateAccount(t, db, "a2", "u1")

	n, err := db.CountAccountsByOwner(ctx, "u1")
	if err != nil || n != 2 {
		t.Fatalf("CountAccountsByOwner() = %d, %v; want 2", n, err)
	}

	list, err := db.ListAccountsByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListAccountsByOwner() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "a1" {
		t.Errorf("ListAccountsByOwner() = %+v", list)
	}

	issued := time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)
	a.ConnectionToken = "state-123"
	a.ConnectionTokenIssuedAt = &issued
	if err := db.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	pending, err := db.GetAccountByConnectionToken(ctx, "state-123")
	if err != nil || pending.ID != "a1" {
		t.Fatalf("GetAccountByConnectionToken() = %+v, %v", pending, err)
	}
	if pending.ConnectionTokenIssuedAt == nil || !pending.ConnectionTokenIssuedAt.Equal(issued) {
		t.Errorf("ConnectionTokenIssuedAt = %v, want %v", pending.ConnectionTokenIssuedAt, issued)
	}
	if _, err := db.GetAccountByConnectionToken(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty token error = %v, want ErrNotFound", err)
	}

	pending.Name = "Alice"
	pending.Username = "alice"
	pending.AccountName = "@alice@mastodon.social"
	pending.MastodonAccountID = "109"
	pending.RequestedScope = []string{"read:accounts", "read:statuses"}
	if err := db.SetAccountConnected(ctx, pending); err != nil {
		t.Fatalf("SetAccountConnected() error = %v", err)
	}

	got, err := db.GetAccount(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if !got.IsActive || got.ConnectionToken != "" || got.ConnectionTokenIssuedAt != nil || got.AccountName != "@alice@mastodon.social" {
		t.Errorf("account not connected: %+v", got)
	}
	if len(got.RequestedScope) != 2 || got.RequestedScope[1] != "read:statuses" {
		t.Errorf("RequestedScope = %v", got.RequestedScope)
	}
	if _, err := db.GetAccountByConnectionToken(ctx, "state-123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("consumed token still resolves: %v", err)
	}

	active, err := db.ListActiveAccounts(ctx)
	if err != nil || len(active) != 1 || active[0].ID != "a1" {
		t.Errorf("ListActiveAccounts() = %+v, %v", active, err)
	}

	if err := db.SetAccountActive(ctx, "a1", false); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkSetupComplete(ctx, "a1"); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetAccount(ctx, "a1")
	if got.IsActive || !got.SetupComplete {
		t.Errorf("flags not applied: %+v", got)
	}
}

func TestAccounts_Credentials(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustCreateAccount(t, db, "a1", "u1")
	if _, err := db.GetCredentials(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetCredentials() before save error = %v", err)
	}

	creds := &models.AccountCredentials{AccountID: "a1", ClientID: "cid", ClientSecret: "secret"}
	if err := db.SaveCredentials(ctx, creds); err != nil {
		t.Fatalf("SaveCredentials() error = %v", err)
	}
	creds.AccessToken = "token"
	if err := db.SaveCredentials(ctx, creds); err != nil {
		t.Fatalf("SaveCredentials() upsert error = %v", err)
	}

	got, err := db.GetCredentials(ctx, "a1")
	if err != nil {
		t.Fatalf("GetCredentials() error = %v", err)
	}
	if *got != *creds {
		t.Errorf("GetCredentials() = %+v, want %+v", got, creds)
	}
}

func TestAccounts_DeleteAndStale(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustCreateAccount(t, db, "fresh", "u1")
	mustCreateAccount(t, db, "stale", "u1")
	old := time.Now().UTC().Add(-10 * 24 * time.Hour)
	if _, err := db.conn.ExecContext(ctx, `UPDATE accounts SET created_at = ? WHERE id = 'stale'`, old); err != nil {
		t.Fatal(err)
	}

	stale, err := db.ListStaleSetupAccounts(ctx, time.Now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("ListStaleSetupAccounts() error = %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "stale" {
		t.Fatalf("ListStaleSetupAccounts() = %+v", stale)
	}

	if err := db.SaveCredentials(ctx, &models.AccountCredentials{AccountID: "stale", ClientID: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertDailyAccountStats(ctx, &models.DailyAccountStats{AccountID: "stale", Day: day("2026-03-01"), FollowersCount: 5}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteAccount(ctx, "stale"); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if _, err := db.GetCredentials(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("credentials not cascaded: %v", err)
	}
	if _, err := db.GetLatestAccountStatsBefore(ctx, "stale", day("2030-01-01")); !errors.Is(err, ErrNotFound) {
		t.Errorf("stats not cascaded: %v", err)
	}
	if err := db.DeleteAccount(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteAccount() error = %v, want ErrNotFound", err)
	}
}
