// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcmd

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTimeout  = errors.New("command timed out")
	ErrCanceled = errors.New("command canceled")
	ErrSpawn    = errors.New("command could not be started")
	ErrIO       = errors.New("command output could not be read")
)

// SpawnError reports a command that never started: missing binary, bad
// working directory or permissions.
type SpawnError struct {
	Name string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Name, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawn, e.Err}
}

// IOError reports a failure while collecting the output of a started command.
type IOError struct {
	Name string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read output of %s: %v", e.Name, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// ExitError is returned by the Capture and RunOutput helpers for a non-zero
// exit status.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

// IsNotFound reports whether err means the executable does not exist.
func IsNotFound(err error) bool {
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		return false
	}
	return errors.Is(spawnErr.Err, errNotFound)
}

func contextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return ErrCanceled
	default:
		return err
	}
}
