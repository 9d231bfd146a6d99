// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 1 << 20
	defaultWaitDelay = 2 * time.Second
)

var errNotFound = exec.ErrNotFound

// Exec runs commands as child processes of the current process.
type Exec struct {
	timeout   time.Duration
	maxOutput int
	waitDelay time.Duration
	logger    *slog.Logger
	lookPath  func(string) (string, error)
	geteuid   func() int
}

// Option configures an Exec runner.
type Option func(*Exec)

// WithTimeout sets the timeout used when Spec.Timeout is zero.
func WithTimeout(d time.Duration) Option {
	return func(e *Exec) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxOutput caps the bytes kept per output stream.
func WithMaxOutput(n int) Option {
	return func(e *Exec) {
		if n > 0 {
			e.maxOutput = n
		}
	}
}

// WithWaitDelay bounds how long Run waits for inherited pipes to close after
// the child is killed.
func WithWaitDelay(d time.Duration) Option {
	return func(e *Exec) {
		if d > 0 {
			e.waitDelay = d
		}
	}
}

// WithLogger sets the logger receiving one debug record per run.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exec) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExec returns a runner with the given options applied.
func NewExec(opts ...Option) *Exec {
	e := &Exec{
		timeout:   DefaultTimeout,
		maxOutput: DefaultMaxOutput,
		waitDelay: defaultWaitDelay,
		logger:    slog.New(slog.DiscardHandler),
		lookPath:  exec.LookPath,
		geteuid:   os.Geteuid,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LookPath reports the resolved path of name.
func (e *Exec) LookPath(name string) (string, bool) {
	path, err := e.lookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

// Run executes spec and waits for it to finish, time out, or be canceled.
// On ErrTimeout and ErrCanceled the partial output is returned with the error.
func (e *Exec) Run(ctx context.Context, spec Spec) (Result, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return Result{ExitCode: -1}, &SpawnError{Name: "command", Err: errors.New("empty command name")}
	}
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, contextError(err)
	}
	argv := e.argv(name, spec)
	path, err := e.lookPath(argv[0])
	if err != nil {
		return Result{ExitCode: -1}, &SpawnError{Name: argv[0], Err: err}
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, argv[1:]...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.WaitDelay = e.waitDelay
	killProcessGroupOnCancel(cmd, !spec.PTY)

	start := time.Now()
	var res Result
	var waitErr error
	if spec.PTY {
		res, waitErr = e.runPTY(cmd, spec)
	} else {
		res, waitErr = e.runPipes(cmd, spec)
	}
	res.Duration = time.Since(start)
	var spawnErr *SpawnError
	if errors.As(waitErr, &spawnErr) {
		e.logRun(spec, res, waitErr)
		return res, waitErr
	}

	err = runOutcome(name, waitErr, cmd.ProcessState, runCtx.Err(), ctx.Err())
	e.logRun(spec, res, err)
	return res, err
}

// runOutcome classifies a finished command. A clean zero exit stands even
// when the deadline expired before Wait returned. A non-zero exit is not an
// error; it is reported through Result.ExitCode.
func runOutcome(name string, waitErr error, state *os.ProcessState, runErr, parentErr error) error {
	if waitErr == nil && state != nil && state.Success() {
		return nil
	}
	if parentErr != nil {
		return contextError(parentErr)
	}
	if runErr != nil {
		return contextError(runErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return &IOError{Name: name, Err: waitErr}
		}
	}
	return nil
}

func (e *Exec) argv(name string, spec Spec) []string {
	argv := make([]string, 0, len(spec.Args)+3)
	if spec.Sudo && e.geteuid() != 0 {
		argv = append(argv, "sudo", "-n")
	}
	argv = append(argv, name)
	return append(argv, spec.Args...)
}

// runPipes starts cmd with bounded stdout and stderr buffers. A start failure
// is returned as *SpawnError; any other error comes from Wait.
func (e *Exec) runPipes(cmd *exec.Cmd, spec Spec) (Result, error) {
	stdout := &limitedBuffer{max: e.maxOutput}
	stderr := &limitedBuffer{max: e.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if len(spec.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(spec.Stdin)
	}
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, &SpawnError{Name: spec.Name, Err: err}
	}
	waitErr := cmd.Wait()
	return Result{
		ExitCode:  exitCode(cmd),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}, waitErr
}

func (e *Exec) logRun(spec Spec, res Result, err error) {
	attrs := []any{
		"cmd", CommandLine(spec),
		"exit", res.ExitCode,
		"duration", res.Duration.Round(time.Millisecond),
	}
	if res.Truncated {
		attrs = append(attrs, "truncated", true)
	}
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	e.logger.Debug("host command", attrs...)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

// limitedBuffer keeps the first max bytes written and discards the rest.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.max - b.buf.Len()
	if room <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
