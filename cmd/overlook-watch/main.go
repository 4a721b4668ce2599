// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// overlook-watch is the run monitor daemon. It discovers run roots
// under a runs directory, watches them for filesystem activity, and
// serves live run surfaces (snapshots, tailed files, input
// forwarding) to viewers over a Unix socket.
//
// Run state is owned entirely by the external engine; the daemon only
// reads it. Input forwarding is relayed to the engine's control
// socket when one is configured with --engine-socket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/overlook-foundation/overlook/interaction"
	"github.com/overlook-foundation/overlook/lib/clock"
	"github.com/overlook-foundation/overlook/lib/config"
	"github.com/overlook-foundation/overlook/lib/fswatch"
	"github.com/overlook-foundation/overlook/lib/version"
	"github.com/overlook-foundation/overlook/snapshot"
	"github.com/overlook-foundation/overlook/surface"
)

// rescanInterval is how often the runs directory is scanned for run
// roots that appeared or vanished. Activity inside known runs arrives
// through inotify; the scan only covers run creation and deletion.
const rescanInterval = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		runsDir      string
		socketPath   string
		engineSocket string
		debounce     time.Duration
		verbose      bool
		showVersion  bool
	)

	flagSet := pflag.NewFlagSet("overlook-watch", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file")
	flagSet.StringVar(&runsDir, "runs-dir", "", "directory containing run roots")
	flagSet.StringVar(&socketPath, "socket", "", "unix socket to serve surfaces on")
	flagSet.StringVar(&engineSocket, "engine-socket", "", "engine control socket for input forwarding")
	flagSet.DurationVar(&debounce, "debounce", 0, "filesystem change debounce window")
	flagSet.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		version.Print("overlook-watch")
		return nil
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if flagSet.Changed("runs-dir") {
		cfg.RunsDir = runsDir
	}
	if flagSet.Changed("socket") {
		cfg.Socket = socketPath
	}
	if flagSet.Changed("engine-socket") {
		cfg.EngineSocket = engineSocket
	}
	if flagSet.Changed("debounce") {
		cfg.Debounce = debounce.String()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	window, err := cfg.DebounceWindow()
	if err != nil {
		return err
	}
	watcher, err := fswatch.New(window, logger)
	if err != nil {
		return fmt.Errorf("starting filesystem watcher: %w", err)
	}
	defer watcher.Close()

	index := newRunIndex(cfg.RunsDir, watcher, logger)
	if err := index.Rescan(); err != nil {
		return fmt.Errorf("scanning runs directory: %w", err)
	}

	var forwarder interaction.Forwarder
	if cfg.EngineSocket != "" {
		forwarder = interaction.NewSocketClient(cfg.EngineSocket, clock.Real(), logger)
	}

	builder := snapshot.NewBuilder(snapshot.Limits{
		MaxJournalEntries: cfg.Limits.MaxJournalEntries,
		MaxListing:        cfg.Limits.MaxListing,
		MaxScriptBytes:    cfg.Limits.MaxScriptBytes,
	}, forwarder, clock.Real(), logger)

	controller := surface.NewController(surface.Options{
		Builder:      builder,
		Runs:         index,
		Forwarder:    forwarder,
		Host:         &desktopHost{logger: logger},
		MaxTailBytes: cfg.Limits.MaxTailBytes,
		Logger:       logger,
	})

	server := surface.NewServer(cfg.Socket, controller, logger)
	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(ctx) }()

	// Debounced change batches drive surface refreshes.
	go func() {
		for batch := range watcher.Batches() {
			controller.HandleBatch(batch)
		}
	}()

	// Periodic rescan picks up runs created or removed after startup.
	go func() {
		ticker := clock.Real().NewTicker(rescanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := index.Rescan(); err != nil {
					logger.Warn("runs directory rescan failed", "error", err)
				}
			}
		}
	}()

	logger.Info("overlook-watch running",
		"runs_dir", cfg.RunsDir,
		"socket", cfg.Socket,
		"engine_socket", cfg.EngineSocket,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return <-serveDone
}
