// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Overlook
// binaries.
//
// Configuration is a single YAML file named by the --config flag.
// There is no automatic discovery: a daemon's inputs should be
// deterministic and auditable. Every field has a working default so a
// minimal file only names the runs directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the Overlook daemon.
type Config struct {
	// RunsDir is the directory the engine creates run roots under.
	RunsDir string `yaml:"runs_dir"`

	// Socket is the unix socket path the daemon serves surfaces on.
	// Default: $XDG_RUNTIME_DIR/overlook.sock, falling back to
	// /tmp/overlook.sock.
	Socket string `yaml:"socket"`

	// EngineSocket is the engine's control socket for interaction
	// forwarding. Empty disables forwarding: snapshots then always
	// report awaiting = false.
	EngineSocket string `yaml:"engine_socket"`

	// Debounce is the filesystem change batching window, as a
	// time.ParseDuration string ("200ms", "1s").
	Debounce string `yaml:"debounce"`

	// Limits bounds snapshot sections and tail sessions.
	Limits Limits `yaml:"limits"`
}

// Limits bounds every read the monitor performs.
type Limits struct {
	// MaxJournalEntries caps retained journal history per run.
	MaxJournalEntries int `yaml:"max_journal_entries"`

	// MaxListing caps each directory listing in a snapshot.
	MaxListing int `yaml:"max_listing"`

	// MaxTailBytes caps the content a tail session serves.
	MaxTailBytes int64 `yaml:"max_tail_bytes"`

	// MaxScriptBytes caps the served main-script content.
	MaxScriptBytes int64 `yaml:"max_script_bytes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	socket := "/tmp/overlook.sock"
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		socket = filepath.Join(runtimeDir, "overlook.sock")
	}
	return Config{
		Socket:   socket,
		Debounce: "200ms",
		Limits: Limits{
			MaxJournalEntries: 2000,
			MaxListing:        200,
			MaxTailBytes:      256 * 1024,
			MaxScriptBytes:    512 * 1024,
		},
	}
}

// Load reads a YAML config file, fills defaults for absent fields,
// and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field consistency. Called by Load and by binaries
// that assemble a Config from flags.
func (c Config) Validate() error {
	if c.RunsDir == "" {
		return errors.New("config: runs_dir is required")
	}
	if c.Socket == "" {
		return errors.New("config: socket is required")
	}
	if _, err := c.DebounceWindow(); err != nil {
		return err
	}
	if c.Limits.MaxJournalEntries < 0 || c.Limits.MaxListing < 0 {
		return errors.New("config: limits must not be negative")
	}
	if c.Limits.MaxTailBytes < 0 || c.Limits.MaxScriptBytes < 0 {
		return errors.New("config: byte limits must not be negative")
	}
	return nil
}

// DebounceWindow parses the debounce field. An empty value means the
// default window.
func (c Config) DebounceWindow() (time.Duration, error) {
	if c.Debounce == "" {
		return 200 * time.Millisecond, nil
	}
	window, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("config: invalid debounce %q: %w", c.Debounce, err)
	}
	if window < 0 {
		return 0, fmt.Errorf("config: debounce must not be negative, got %s", c.Debounce)
	}
	return window, nil
}
