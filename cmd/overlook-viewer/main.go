// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// overlook-viewer is the interactive terminal UI for watching runs.
// It connects to an overlook-watch daemon over its surface socket,
// lists the runs the daemon knows about, and shows live snapshots:
// journal entries, work summaries, artifacts, the main script, and
// tailed text files. When the daemon has an engine control socket
// configured, the viewer can forward text, Enter, and Escape to a
// run's interactive process.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/overlook-foundation/overlook/lib/config"
	"github.com/overlook-foundation/overlook/lib/runui"
	"github.com/overlook-foundation/overlook/lib/version"
	"github.com/overlook-foundation/overlook/surface"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		socketPath  string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("overlook-viewer", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", "", "monitor surface socket (default: the standard overlook socket)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("overlook-viewer")
		return nil
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stdout is not a terminal; overlook-viewer is interactive")
	}

	if socketPath == "" {
		socketPath = config.Default().Socket
	}

	client, err := surface.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("is overlook-watch running? %w", err)
	}
	defer client.Close()

	model := runui.NewModel(client)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Read pump: every pushed message becomes a program message. A
	// read failure means the monitor went away; the model quits.
	go func() {
		for {
			event, err := client.Receive()
			if err != nil {
				program.Send(runui.DisconnectedMsg{Err: err})
				return
			}
			program.Send(runui.TranslateEvent(event))
		}
	}()

	_, err = program.Run()
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Overlook run viewer — interactive terminal UI for watching runs.

Connects to the overlook-watch daemon's surface socket and shows live
run snapshots: status, journal, work summaries, prompts, artifacts,
and the run's main script. Files can be opened, tailed, or forwarded
to the operator's desktop tools through the daemon.

Usage:
  overlook-viewer [flags]

Keys:
  j/k       move between runs, or scroll the detail pane (tab switches)
  r         force a refresh of the open run
  s         toggle the main script view
  i         compose a line of input for the run
  enter/x   forward a bare Enter / Escape to the run
  q         quit

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
