// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcmd

import (
	"context"
	"strings"
	"sync"
	"time"
)

// FakeResponse is the scripted outcome of one command line.
type FakeResponse struct {
	Result Result
	Err    error
	// Delay blocks Run until it elapses or ctx is done.
	Delay time.Duration
}

// Fake is a Runner that answers from a table keyed by command line
// ("name arg1 arg2"). Unscripted commands fail as not found.
type Fake struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	installed map[string]bool
	calls     []Spec
}

// NewFake returns an empty fake runner.
func NewFake() *Fake {
	return &Fake{
		responses: map[string]FakeResponse{},
		installed: map[string]bool{},
	}
}

// On scripts a successful command with the given stdout.
func (f *Fake) On(line string, stdout string) *Fake {
	return f.Respond(line, FakeResponse{Result: Result{Stdout: stdout}})
}

// OnExit scripts a command exiting with code and stderr.
func (f *Fake) OnExit(line string, code int, stderr string) *Fake {
	return f.Respond(line, FakeResponse{Result: Result{ExitCode: code, Stderr: stderr}})
}

// Respond scripts an arbitrary response and marks the program installed.
func (f *Fake) Respond(line string, resp FakeResponse) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = resp
	if name, _, _ := strings.Cut(line, " "); name != "" {
		f.installed[name] = true
	}
	return f
}

// Install marks programs as present on PATH without scripting output.
func (f *Fake) Install(names ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range names {
		f.installed[name] = true
	}
	return f
}

// Uninstall removes programs from PATH.
func (f *Fake) Uninstall(names ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range names {
		delete(f.installed, name)
	}
	return f
}

// LookPath reports programs marked installed.
func (f *Fake) LookPath(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.installed[name] {
		return "", false
	}
	return "/usr/bin/" + name, true
}

// Run answers spec from the script and records the call.
func (f *Fake) Run(ctx context.Context, spec Spec) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, contextError(err)
	}
	line := fakeLine(spec)
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	resp, ok := f.responses[line]
	installed := f.installed[spec.Name]
	f.mu.Unlock()

	if !ok {
		if installed {
			return Result{ExitCode: 127, Stderr: "unscripted command: " + line}, nil
		}
		return Result{ExitCode: -1}, &SpawnError{Name: spec.Name, Err: errNotFound}
	}
	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{ExitCode: -1}, contextError(ctx.Err())
		case <-timer.C:
		}
	}
	return resp.Result, resp.Err
}

// Calls returns the specs run so far.
func (f *Fake) Calls() []Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Spec(nil), f.calls...)
}

// Ran reports whether line was run.
func (f *Fake) Ran(line string) bool {
	for _, spec := range f.Calls() {
		if fakeLine(spec) == line {
			return true
		}
	}
	return false
}

func fakeLine(spec Spec) string {
	return strings.TrimSpace(spec.Name + " " + strings.Join(spec.Args, " "))
}
