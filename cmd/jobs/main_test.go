// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/blazer82/analytodon-sub001/internal/collector"
	"github.com/blazer82/analytodon-sub001/internal/database"
)

func TestRootCommand_HasEveryJob(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	for _, job := range collector.Jobs {
		if cmd, _, err := root.Find([]string{string(job)}); err != nil || cmd.Name() != string(job) {
			t.Errorf("no command for job %s", job)
		}
	}
	for _, name := range []string{"fetch-initial-stats", "migrate"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("no command %s", name)
		}
	}
}

func TestInitialStats_RequiresAccount(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"fetch-initial-stats"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "account") {
		t.Errorf("Execute() error = %v, want missing --account", err)
	}
}

func TestCommands_RejectArgs(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"cleanup", "extra"})

	if err := root.Execute(); err == nil {
		t.Error("Execute() accepted a positional argument")
	}
}

func TestExplainOpenError(t *testing.T) {
	t.Parallel()

	locked := explainOpenError(fmt.Errorf("%w: /data/analytodon.duckdb", database.ErrLocked))
	if !errors.Is(locked, database.ErrLocked) {
		t.Errorf("explainOpenError() = %v, want ErrLocked kept", locked)
	}
	if !strings.Contains(locked.Error(), "stop the API server") || !strings.Contains(locked.Error(), "/api/v1/admin/jobs/") {
		t.Errorf("explainOpenError() = %q, want a hint about the running server", locked)
	}

	other := explainOpenError(errors.New("disk full"))
	if strings.Contains(other.Error(), "stop the API server") {
		t.Errorf("explainOpenError(disk full) = %q, want no server hint", other)
	}
}

func TestCommandDescriptions(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	tests := []struct {
		name string
		want []string
	}{
		{"cleanup", []string{"stale setups", "inactive users", "delete users"}},
		{"fetch-initial-stats", []string{"first stats"}},
	}
	for _, tt := range tests {
		cmd, _, err := root.Find([]string{tt.name})
		if err != nil {
			t.Fatalf("Find(%s) error = %v", tt.name, err)
		}
		for _, w := range tt.want {
			if !strings.Contains(cmd.Short, w) {
				t.Errorf("%s Short = %q, want it to mention %q", tt.name, cmd.Short, w)
			}
		}
	}
}
