// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging builds the slog loggers used by the shell and the CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 14
)

// ParseLevel maps a config level name to a slog level. Unknown names are
// treated as info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// File is a rotated log file. Close flushes and releases it.
type File struct {
	*slog.Logger
	rot *lj.Logger
}

func (f *File) Close() error {
	if f == nil || f.rot == nil {
		return nil
	}
	return f.rot.Close()
}

// Path returns the file being written.
func (f *File) Path() string {
	if f == nil || f.rot == nil {
		return ""
	}
	return f.rot.Filename
}

// NewFile opens a size-rotated log at path. The TUI owns the terminal, so
// shell sessions log here instead of stderr.
func NewFile(path string, level slog.Level) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return &File{Logger: Discard()}, nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}
	rot := &lj.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return &File{Logger: New(&safeWriter{inner: rot}, level), rot: rot}, nil
}

// NewCLI returns the logger for one-shot commands: stderr at warn, or at
// debug when verbose.
func NewCLI(stderr io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return New(stderr, level)
}

// safeWriter drops log writes that fail so logging never aborts a command.
type safeWriter struct {
	inner  io.Writer
	failed bool
}

func (w *safeWriter) Write(p []byte) (int, error) {
	if w.failed {
		return len(p), nil
	}
	if _, err := w.inner.Write(p); err != nil {
		w.failed = true
	}
	return len(p), nil
}
