// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hostcmd runs commands on the local host with bounded wait time and
// captures their output.
package hostcmd

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Spec describes one command invocation. Args are passed to the program
// directly and never through a shell.
type Spec struct {
	Name    string
	Args    []string
	Timeout time.Duration
	Sudo    bool
	PTY     bool
	Stdin   []byte
	Env     []string
	Dir     string
}

// Result is the captured outcome of a command that ran to completion or was
// stopped. A non-zero ExitCode is reported here and not as an error.
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	Duration  time.Duration
	Truncated bool
}

// OK reports whether the command exited with status zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Output returns stdout, or stderr when stdout is empty. Several tools
// (dd, some versions of ping) report on stderr only.
func (r Result) Output() string {
	if strings.TrimSpace(r.Stdout) != "" {
		return r.Stdout
	}
	return r.Stderr
}

// Runner executes commands. Exec is the production implementation and Fake
// is the scripted one used in tests.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
	LookPath(name string) (string, bool)
}

// Exists reports whether name resolves on PATH.
func Exists(r Runner, name string) bool {
	_, ok := r.LookPath(name)
	return ok
}

// RunOutput executes a host command and returns a formatted error on failure.
func RunOutput(ctx context.Context, r Runner, name string, args ...string) error {
	return Check(ctx, r, Spec{Name: name, Args: args})
}

// Check runs spec and converts a non-zero exit into an error carrying the
// trimmed command output.
func Check(ctx context.Context, r Runner, spec Spec) error {
	res, err := r.Run(ctx, spec)
	if err != nil {
		return err
	}
	if res.OK() {
		return nil
	}
	output := strings.TrimSpace(res.Stderr)
	if output == "" {
		output = strings.TrimSpace(res.Stdout)
	}
	exitErr := &ExitError{Name: spec.Name, Code: res.ExitCode, Stderr: output}
	if output == "" {
		return fmt.Errorf("failed to run %s: %w", spec.Name, exitErr)
	}
	return fmt.Errorf("failed to run %s: %w: %s", spec.Name, exitErr, output)
}

// Capture executes a host command and returns stdout on success.
func Capture(ctx context.Context, r Runner, name string, args ...string) (string, error) {
	res, err := r.Run(ctx, Spec{Name: name, Args: args})
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", &ExitError{Name: name, Code: res.ExitCode, Stderr: strings.TrimSpace(res.Stderr)}
	}
	return res.Stdout, nil
}

// CommandLine renders spec for display and logging.
func CommandLine(spec Spec) string {
	parts := make([]string, 0, len(spec.Args)+2)
	if spec.Sudo {
		parts = append(parts, "sudo")
	}
	parts = append(parts, spec.Name)
	for _, arg := range spec.Args {
		parts = append(parts, displayQuote(arg))
	}
	return strings.Join(parts, " ")
}

func displayQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}
