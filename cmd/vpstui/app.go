// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/shayne/vpstui/internal/config"
	"github.com/shayne/vpstui/internal/handlers"
	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/logging"
	"github.com/shayne/vpstui/internal/probe"
)

type app struct {
	cfg    config.Config
	logger *slog.Logger
	runner hostcmd.Runner
	reg    *handlers.Registry
}

// loadCLIApp wires a one-shot command. Logs go to stderr so they never mix
// with the report on stdout.
func loadCLIApp(verbose bool) (app, error) {
	cfg, _, err := config.Load()
	if err != nil {
		return app{}, fmt.Errorf("failed to load config: %w", err)
	}
	return newApp(cfg, logging.NewCLI(os.Stderr, verbose)), nil
}

func newApp(cfg config.Config, logger *slog.Logger) app {
	runner := hostcmd.NewExec(
		hostcmd.WithTimeout(cfg.CommandTimeout),
		hostcmd.WithLogger(logger),
	)
	env := handlers.Env{
		Runner: runner,
		FS:     afero.NewOsFs(),
		Logger: logger,
		Config: cfg,
	}
	return app{cfg: cfg, logger: logger, runner: runner, reg: handlers.Default(env)}
}

func hostLabel(fs afero.Fs) string {
	if name, err := probe.Hostname(fs); err == nil && name != "" {
		return name
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "localhost"
}
