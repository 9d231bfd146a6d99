// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcmd

import (
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// runPTY attaches cmd to a pseudo-terminal. Tools that only print progress
// when stdout is a terminal (fio, speedtest-cli) report through it. The
// terminal stream is merged into Result.Stdout.
func (e *Exec) runPTY(cmd *exec.Cmd, spec Spec) (Result, error) {
	ptmx, err := pty.StartWithAttrs(cmd, &pty.Winsize{Rows: 40, Cols: 120}, ptyAttrs())
	if err != nil {
		return Result{ExitCode: -1}, &SpawnError{Name: spec.Name, Err: err}
	}
	defer func() { _ = ptmx.Close() }()

	out := &limitedBuffer{max: e.maxOutput}
	copied := make(chan error, 1)
	go func() {
		_, err := io.Copy(out, ptmx)
		copied <- err
	}()
	if len(spec.Stdin) > 0 {
		_, _ = ptmx.Write(spec.Stdin)
	}

	waitErr := cmd.Wait()
	select {
	case err := <-copied:
		if err != nil && !isPTYClosed(err) && waitErr == nil {
			waitErr = err
		}
	case <-time.After(e.waitDelay):
		// A grandchild still holds the terminal open.
		_ = ptmx.Close()
		<-copied
	}
	return Result{
		ExitCode:  exitCode(cmd),
		Stdout:    out.String(),
		Truncated: out.Truncated(),
	}, waitErr
}

// isPTYClosed reports the read error Linux returns once the last slave
// descriptor is closed.
func isPTYClosed(err error) bool {
	return errors.Is(err, syscall.EIO) || errors.Is(err, io.EOF)
}
