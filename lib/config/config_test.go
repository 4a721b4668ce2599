// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlook.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "runs_dir: /var/lib/engine/runs\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RunsDir != "/var/lib/engine/runs" {
		t.Errorf("RunsDir = %q", cfg.RunsDir)
	}
	if cfg.Socket == "" {
		t.Error("Socket default not applied")
	}
	if window, err := cfg.DebounceWindow(); err != nil || window != 200*time.Millisecond {
		t.Errorf("DebounceWindow() = %v, %v, want 200ms default", window, err)
	}
	if cfg.Limits.MaxJournalEntries != 2000 || cfg.Limits.MaxTailBytes != 256*1024 {
		t.Errorf("Limits = %+v, defaults not applied", cfg.Limits)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, strings.Join([]string{
		"runs_dir: /runs",
		"socket: /run/overlook/surface.sock",
		"engine_socket: /run/engine/control.sock",
		"debounce: 500ms",
		"limits:",
		"  max_journal_entries: 100",
		"  max_listing: 10",
	}, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Socket != "/run/overlook/surface.sock" || cfg.EngineSocket != "/run/engine/control.sock" {
		t.Errorf("sockets = %q, %q", cfg.Socket, cfg.EngineSocket)
	}
	if window, err := cfg.DebounceWindow(); err != nil || window != 500*time.Millisecond {
		t.Errorf("DebounceWindow() = %v, %v", window, err)
	}
	if cfg.Limits.MaxJournalEntries != 100 || cfg.Limits.MaxListing != 10 {
		t.Errorf("Limits = %+v", cfg.Limits)
	}
	// Unset limits keep their defaults.
	if cfg.Limits.MaxTailBytes != 256*1024 {
		t.Errorf("MaxTailBytes = %d, want default", cfg.Limits.MaxTailBytes)
	}
}

func TestLoadRejectsMissingRunsDir(t *testing.T) {
	if _, err := Load(writeConfig(t, "socket: /tmp/x.sock\n")); err == nil {
		t.Error("config without runs_dir accepted")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "runs_dir: [\n")); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestLoadRejectsBadDebounce(t *testing.T) {
	if _, err := Load(writeConfig(t, "runs_dir: /runs\ndebounce: fast\n")); err == nil {
		t.Error("unparsable debounce accepted")
	}
}

func TestValidateRejectsNegativeLimits(t *testing.T) {
	cfg := Default()
	cfg.RunsDir = "/runs"
	cfg.Limits.MaxListing = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative limit accepted")
	}
}
