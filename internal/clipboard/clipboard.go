// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clipboard copies report text to the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shayne/vpstui/internal/hostcmd"
)

var ErrUnavailable = errors.New("no clipboard available")

const toolTimeout = 5 * time.Second

// nativeWrite is replaced in tests.
var nativeWrite = writeNative

type tool struct {
	name string
	args []string
	// when reports whether the tool applies to the current session.
	when func() bool
}

func always() bool { return true }

func wayland() bool { return os.Getenv("WAYLAND_DISPLAY") != "" }

func x11() bool { return os.Getenv("DISPLAY") != "" }

var tools = []tool{
	{name: "wl-copy", when: wayland},
	{name: "xclip", args: []string{"-selection", "clipboard"}, when: x11},
	{name: "xsel", args: []string{"--clipboard", "--input"}, when: x11},
	{name: "pbcopy", when: always},
	{name: "clip.exe", when: isWSL},
}

// WriteText puts text on the clipboard and returns the mechanism used. The
// native clipboard is tried first, then the usual helper programs.
func WriteText(ctx context.Context, r hostcmd.Runner, text string) (string, error) {
	if err := nativeWrite(text); err == nil {
		return "native", nil
	}
	var errs []error
	for _, t := range tools {
		if !t.when() || !hostcmd.Exists(r, t.name) {
			continue
		}
		spec := hostcmd.Spec{Name: t.name, Args: t.args, Stdin: []byte(text), Timeout: toolTimeout}
		if err := hostcmd.Check(ctx, r, spec); err != nil {
			errs = append(errs, err)
			continue
		}
		return t.name, nil
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}
	return "", ErrUnavailable
}

// isWSL reports a Linux kernel running under Windows.
func isWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	if data, err := os.ReadFile("/proc/version"); err == nil {
		version := strings.ToLower(string(data))
		if strings.Contains(version, "microsoft") || strings.Contains(version, "wsl") {
			return true
		}
	}
	return os.Getenv("WSL_DISTRO_NAME") != "" || os.Getenv("WSL_INTEROP") != ""
}
