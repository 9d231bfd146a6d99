// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package hostcmd

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunCapturesStreamsSeparately(t *testing.T) {
	requireSh(t)
	r := NewExec()
	res, err := r.Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %d", res.ExitCode)
	}
	if res.OK() {
		t.Fatalf("expected non-zero exit to be reported as not OK")
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Fatalf("unexpected stderr %q", res.Stderr)
	}
	if res.Duration <= 0 {
		t.Fatalf("expected duration to be recorded")
	}
}

func TestRunMissingBinaryIsSpawnError(t *testing.T) {
	r := NewExec()
	_, err := r.Run(context.Background(), Spec{Name: "vpstui-definitely-missing"})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not-found classification for %v", err)
	}
}

func TestRunEmptyName(t *testing.T) {
	_, err := NewExec().Run(context.Background(), Spec{Name: "  "})
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("expected ErrSpawn, got %v", err)
	}
}

func TestRunTimeoutKillsProcessGroup(t *testing.T) {
	requireSh(t)
	r := NewExec(WithWaitDelay(500 * time.Millisecond))
	start := time.Now()
	res, err := r.Run(context.Background(), Spec{
		Name:    "sh",
		Args:    []string{"-c", "echo started; sleep 30 & sleep 30"},
		Timeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took too long: %s", elapsed)
	}
	if !strings.Contains(res.Stdout, "started") {
		t.Fatalf("expected partial output, got %q", res.Stdout)
	}
}

func TestRunCanceledContext(t *testing.T) {
	requireSh(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	_, err := NewExec().Run(ctx, Spec{Name: "sh", Args: []string{"-c", "sleep 30"}})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}

func TestRunDoneContextDoesNotSpawn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	r := NewExec()
	r.lookPath = func(name string) (string, error) {
		called = true
		return exec.LookPath(name)
	}
	_, err := r.Run(ctx, Spec{Name: "sh", Args: []string{"-c", "true"}})
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if called {
		t.Fatalf("expected no lookup for a done context")
	}
}

func TestRunTruncatesOutput(t *testing.T) {
	requireSh(t)
	r := NewExec(WithMaxOutput(8))
	res, err := r.Run(context.Background(), Spec{Name: "sh", Args: []string{"-c", "echo 0123456789abcdef"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "01234567" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
	if !res.Truncated {
		t.Fatalf("expected Truncated")
	}
}

func TestRunStdinAndEnv(t *testing.T) {
	requireSh(t)
	res, err := NewExec().Run(context.Background(), Spec{
		Name:  "sh",
		Args:  []string{"-c", `read line; echo "$line-$VPSTUI_TEST"`},
		Stdin: []byte("hello\n"),
		Env:   []string{"VPSTUI_TEST=ok"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello-ok" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
}

func TestArgvSudo(t *testing.T) {
	cases := []struct {
		name string
		euid int
		sudo bool
		want string
	}{
		{name: "root", euid: 0, sudo: true, want: "ufw allow 22/tcp"},
		{name: "user", euid: 1000, sudo: true, want: "sudo -n ufw allow 22/tcp"},
		{name: "no sudo", euid: 1000, sudo: false, want: "ufw allow 22/tcp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewExec()
			r.geteuid = func() int { return tc.euid }
			got := strings.Join(r.argv("ufw", Spec{Args: []string{"allow", "22/tcp"}, Sudo: tc.sudo}), " ")
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRunPTYMergesStreams(t *testing.T) {
	requireSh(t)
	res, err := NewExec().Run(context.Background(), Spec{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2"},
		PTY:  true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(res.Stdout, "out") || !strings.Contains(res.Stdout, "err") {
		t.Fatalf("expected merged terminal output, got %q", res.Stdout)
	}
}

func TestRunOutcomePrefersCleanExit(t *testing.T) {
	requireSh(t)
	clean := exec.Command("sh", "-c", "exit 0")
	if err := clean.Run(); err != nil {
		t.Fatalf("sh: %v", err)
	}
	if err := runOutcome("sh", nil, clean.ProcessState, context.DeadlineExceeded, nil); err != nil {
		t.Fatalf("clean exit past its deadline reported as %v", err)
	}

	failed := exec.Command("sh", "-c", "exit 2")
	waitErr := failed.Run()
	if err := runOutcome("sh", waitErr, failed.ProcessState, nil, nil); err != nil {
		t.Fatalf("non-zero exit should not be an error, got %v", err)
	}
	if err := runOutcome("sh", waitErr, failed.ProcessState, context.DeadlineExceeded, nil); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if err := runOutcome("sh", waitErr, failed.ProcessState, context.Canceled, context.Canceled); !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if err := runOutcome("sh", errors.New("read |0: file already closed"), clean.ProcessState, nil, nil); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
