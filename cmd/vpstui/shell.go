// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/shayne/vpstui/internal/config"
	"github.com/shayne/vpstui/internal/logging"
)

// runShell starts the full-screen menu. The terminal belongs to the TUI, so
// logs go to the rotated file from the config.
func runShell() error {
	cfg, path, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	logFile, err := logging.NewFile(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
		logFile = &logging.File{Logger: logging.Discard()}
	}
	defer func() { _ = logFile.Close() }()

	a := newApp(cfg, logFile.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.logger.Info("shell started", "version", versionString(), "log", logFile.Path())
	model := newShellModel(ctx, a.reg, a.runner, hostLabel(afero.NewOsFs()))
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	a.logger.Info("shell stopped")
	return nil
}
