// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// desktopHost performs surface desktop actions with the operator's
// desktop tooling. The daemon usually runs in the operator's session,
// so xdg-open and a Wayland/X clipboard tool are available; when they
// are not, the failure is reported back on the surface.
type desktopHost struct {
	logger *slog.Logger
}

func (h *desktopHost) OpenInEditor(path string) error {
	if editor := strings.TrimSpace(os.Getenv("VISUAL")); editor != "" {
		return h.spawn(editor, path)
	}
	return h.spawn("xdg-open", path)
}

func (h *desktopHost) RevealInExplorer(path string) error {
	return h.spawn("xdg-open", path)
}

// CopyText pipes text to the first available clipboard tool.
func (h *desktopHost) CopyText(text string) error {
	for _, tool := range []string{"wl-copy", "xclip"} {
		binary, err := exec.LookPath(tool)
		if err != nil {
			continue
		}
		command := exec.Command(binary)
		if tool == "xclip" {
			command = exec.Command(binary, "-selection", "clipboard")
		}
		command.Stdin = strings.NewReader(text)
		if err := command.Run(); err != nil {
			return fmt.Errorf("%s: %w", tool, err)
		}
		return nil
	}
	return fmt.Errorf("no clipboard tool found (tried wl-copy, xclip)")
}

// spawn launches a desktop command detached from the daemon.
func (h *desktopHost) spawn(binary string, args ...string) error {
	path, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", binary)
	}
	command := exec.Command(path, args...)
	if err := command.Start(); err != nil {
		return err
	}
	h.logger.Debug("desktop action spawned", "binary", binary, "args", args)
	go command.Wait()
	return nil
}
