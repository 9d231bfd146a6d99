// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shayne/vpstui/internal/config"
	"github.com/shayne/vpstui/internal/handlers"
	"github.com/shayne/vpstui/internal/tui"
)

func TestNormalizeArgs(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{in: nil, want: nil},
		{in: []string{"--version"}, want: []string{"version"}},
		{in: []string{"help"}, want: []string{"--help"}},
		{in: []string{"help", "port"}, want: []string{"port", "--help"}},
		{in: []string{"help", "bogus"}, want: []string{"--help"}},
		{in: []string{"list"}, want: []string{"list"}},
		{in: []string{"-h"}, want: []string{"-h"}},
		{in: []string{"3"}, want: []string{"run", "3"}},
		{in: []string{"cpu", "-f", "json"}, want: []string{"run", "cpu", "-f", "json"}},
	}
	for _, tt := range tests {
		got := normalizeArgs(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("normalizeArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSilentErrorUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := newSilentError(base)
	if !errors.Is(err, base) {
		t.Fatalf("expected silent error to wrap base")
	}
	if newSilentError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	var usage usageError
	if !errors.As(newUsageError("bad"), &usage) || usage.message != "bad" {
		t.Fatalf("unexpected usage error %+v", usage)
	}
}

func TestConfirmChangeDeclined(t *testing.T) {
	var out bytes.Buffer
	err := confirmChange(strings.NewReader("n\n"), &out, "开放端口 8080/tcp (ufw)?", "sudo ufw allow 8080/tcp")
	if !errors.Is(err, tui.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	var usage usageError
	if !errors.As(err, &usage) || usage.message != "canceled" {
		t.Fatalf("expected canceled usage error, got %#v", err)
	}
	if err := confirmChange(strings.NewReader("y\n"), &out, "t", ""); err != nil {
		t.Fatalf("expected confirmation, got %v", err)
	}
}

func TestWriteConfigKeys(t *testing.T) {
	var out bytes.Buffer
	writeConfigKeys(&out)
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	if !reflect.DeepEqual(got, config.Keys()) {
		t.Fatalf("keys = %v, want %v", got, config.Keys())
	}
	cfg := config.Default()
	for _, key := range got {
		if err := cfg.Set(key, ""); err != nil && strings.Contains(err.Error(), "unknown config key") {
			t.Fatalf("listed key %q is not settable", key)
		}
	}
}

func TestWriteItems(t *testing.T) {
	items := []handlers.MenuItem{
		{Number: "1", Key: "sysinfo", Label: "系统信息", Description: "查看系统基本信息"},
		{Number: "0", Key: "tcp", Label: "tcp调优", Description: "优化TCP网络参数"},
	}
	var buf bytes.Buffer
	if err := writeItems(&buf, items, ""); err != nil {
		t.Fatalf("writeItems: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "1. 系统信息") || !strings.HasSuffix(lines[1], "优化TCP网络参数") {
		t.Fatalf("unexpected text listing:\n%s", buf.String())
	}

	buf.Reset()
	if err := writeItems(&buf, items, "json"); err != nil {
		t.Fatalf("writeItems json: %v", err)
	}
	var decoded []handlers.MenuItem
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded) != 2 || decoded[1].Key != "tcp" {
		t.Fatalf("unexpected json listing %q: %v", buf.String(), err)
	}

	buf.Reset()
	if err := writeItems(&buf, items, "yaml"); err != nil || !strings.Contains(buf.String(), "key: sysinfo") {
		t.Fatalf("unexpected yaml listing %q: %v", buf.String(), err)
	}

	var usage usageError
	if err := writeItems(&buf, items, "xml"); !errors.As(err, &usage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestRunSelection(t *testing.T) {
	reg := testRegistry(nil)
	var buf bytes.Buffer
	if err := runSelection(context.Background(), &buf, reg, "disk", "text"); err != nil {
		t.Fatalf("runSelection: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "=== 硬盘测试 ===") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	err := runSelection(context.Background(), &buf, reg, "nope", "text")
	var usage usageError
	if !errors.As(err, &usage) || !strings.Contains(usage.message, "vpstui list") {
		t.Fatalf("expected usage error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf.Reset()
	err = runSelection(ctx, &buf, reg, "1", "json")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if !strings.Contains(buf.String(), `"title": "系统信息"`) {
		t.Fatalf("partial report should still print:\n%s", buf.String())
	}
}

func TestConfigUpdates(t *testing.T) {
	flags := configFlags{
		Timeout:     "45s",
		LogLevel:    "debug",
		PingTargets: "9.9.9.9, 1.0.0.1",
		Set:         []string{"api_listen=0.0.0.0:9000"},
	}
	updates, err := configUpdates(flags, boolFlagValue{set: true, value: false})
	if err != nil {
		t.Fatalf("configUpdates: %v", err)
	}
	cfg := config.Default()
	for _, u := range updates {
		if err := cfg.Set(u.key, u.value); err != nil {
			t.Fatalf("Set(%s): %v", u.key, err)
		}
	}
	if cfg.CommandTimeout != 45*time.Second || cfg.LogLevel != "debug" || cfg.NetworkLookup || cfg.APIListen != "0.0.0.0:9000" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.PingTargets, []string{"9.9.9.9", "1.0.0.1"}) {
		t.Fatalf("ping targets = %q", cfg.PingTargets)
	}

	if _, err := configUpdates(configFlags{Set: []string{"novalue"}}, boolFlagValue{}); err == nil {
		t.Fatalf("expected error for malformed --set")
	}
	if updates, _ := configUpdates(configFlags{}, boolFlagValue{}); len(updates) != 0 {
		t.Fatalf("expected no updates, got %+v", updates)
	}
}

func TestParseBoolFlagValue(t *testing.T) {
	v, err := parseBoolFlagValue([]string{"--network-lookup=false"}, "network-lookup")
	if err != nil || !v.set || v.value {
		t.Fatalf("unexpected %+v, %v", v, err)
	}
	v, err = parseBoolFlagValue([]string{"--network-lookup"}, "network-lookup")
	if err != nil || !v.set || !v.value {
		t.Fatalf("unexpected %+v, %v", v, err)
	}
	if _, err := parseBoolFlagValue([]string{"--network-lookup=maybe"}, "network-lookup"); err == nil {
		t.Fatalf("expected error for invalid value")
	}
	if _, err := parseBoolFlagValue([]string{"--network-lookup", "--network-lookup"}, "network-lookup"); err == nil {
		t.Fatalf("expected error for repeated flag")
	}
}

func TestParseOptionalDuration(t *testing.T) {
	if d, err := parseOptionalDuration("--timeout", ""); err != nil || d != 0 {
		t.Fatalf("empty: %v, %v", d, err)
	}
	if d, err := parseOptionalDuration("--timeout", "90s"); err != nil || d != 90*time.Second {
		t.Fatalf("90s: %v, %v", d, err)
	}
	for _, bad := range []string{"soon", "-5s", "0s"} {
		if _, err := parseOptionalDuration("--timeout", bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestVersionString(t *testing.T) {
	prevVersion, prevCommit := version, commit
	t.Cleanup(func() { version, commit = prevVersion, prevCommit })

	version, commit = "1.2.0", ""
	if got := versionString(); got != "1.2.0" {
		t.Fatalf("versionString = %q", got)
	}
	version, commit = " ", "abc123"
	if got := versionString(); got != "dev (abc123)" {
		t.Fatalf("versionString = %q", got)
	}
}
