// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", "/state")

	cfg, path, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join("vpstui", "config.toml")) {
		t.Fatalf("unexpected path %s", path)
	}
	if cfg.CommandTimeout != 30*time.Second || cfg.BenchmarkTimeout != 120*time.Second {
		t.Fatalf("unexpected timeouts %s %s", cfg.CommandTimeout, cfg.BenchmarkTimeout)
	}
	if cfg.LogFile != "/state/vpstui/vpstui.log" {
		t.Fatalf("unexpected log file %s", cfg.LogFile)
	}
	if !cfg.NetworkLookup {
		t.Fatalf("expected network lookup enabled by default")
	}
	if !reflect.DeepEqual(cfg.PingTargets, []string{"1.1.1.1", "8.8.8.8"}) {
		t.Fatalf("unexpected ping targets %v", cfg.PingTargets)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	path, err := configPath()
	if err != nil {
		t.Fatalf("configPath: %v", err)
	}
	cfg := Default()
	cfg.CommandTimeout = 45 * time.Second
	cfg.LogLevel = "debug"
	cfg.NetworkLookup = false
	cfg.PingTargets = []string{"9.9.9.9"}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, loadedPath, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadedPath != path {
		t.Fatalf("expected path %s, got %s", path, loadedPath)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Fatalf("config mismatch:\n%+v\n%+v", loaded, cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("command_timeout = \"5s\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.CommandTimeout != 5*time.Second {
		t.Fatalf("unexpected command timeout %s", cfg.CommandTimeout)
	}
	if cfg.BenchmarkTimeout != 120*time.Second || cfg.APIListen != "127.0.0.1:8787" {
		t.Fatalf("expected defaults for unset keys, got %+v", cfg)
	}
}

func TestLoadInvalidDurationNamesKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("benchmark_timeout = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "benchmark_timeout") {
		t.Fatalf("expected error naming benchmark_timeout, got %v", err)
	}
}

func TestSet(t *testing.T) {
	cfg := Default()
	if err := cfg.Set("command_timeout", "1m"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.CommandTimeout != time.Minute {
		t.Fatalf("unexpected timeout %s", cfg.CommandTimeout)
	}
	if err := cfg.Set("ping_targets", "1.1.1.1, 9.9.9.9,"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !reflect.DeepEqual(cfg.PingTargets, []string{"1.1.1.1", "9.9.9.9"}) {
		t.Fatalf("unexpected targets %v", cfg.PingTargets)
	}
	cases := map[string]string{
		"log_level":      "loud",
		"network_lookup": "maybe",
		"api_listen":     "8787",
		"nope":           "x",
	}
	for key, value := range cases {
		c := Default()
		if err := c.Set(key, value); err == nil {
			t.Fatalf("expected error for %s=%s", key, value)
		}
	}
}

func TestRemoveConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path, err := configPath()
	if err != nil {
		t.Fatalf("configPath: %v", err)
	}
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := RemoveConfigFile(); err != nil {
		t.Fatalf("RemoveConfigFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected config removed, got %v", err)
	}
	if err := RemoveConfigFile(); err != nil {
		t.Fatalf("second RemoveConfigFile: %v", err)
	}
}
