// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const appName = "vpstui"

type Config struct {
	CommandTimeout   time.Duration
	BenchmarkTimeout time.Duration
	LogLevel         string
	LogFile          string
	NetworkLookup    bool
	PingTargets      []string
	DiskTestDir      string
	APIListen        string
}

// fileConfig is the on-disk shape. Durations stay strings so a bad value
// can be reported with its key.
type fileConfig struct {
	CommandTimeout   string   `toml:"command_timeout"`
	BenchmarkTimeout string   `toml:"benchmark_timeout"`
	LogLevel         string   `toml:"log_level"`
	LogFile          string   `toml:"log_file"`
	NetworkLookup    bool     `toml:"network_lookup"`
	PingTargets      []string `toml:"ping_targets"`
	DiskTestDir      string   `toml:"disk_test_dir"`
	APIListen        string   `toml:"api_listen"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	logFile := ""
	if stateDir, err := stateHome(); err == nil {
		logFile = filepath.Join(stateDir, appName, appName+".log")
	}
	return Config{
		CommandTimeout:   30 * time.Second,
		BenchmarkTimeout: 120 * time.Second,
		LogLevel:         "info",
		LogFile:          logFile,
		NetworkLookup:    true,
		PingTargets:      []string{"1.1.1.1", "8.8.8.8"},
		DiskTestDir:      filepath.Join(os.TempDir(), appName+"-disk"),
		APIListen:        "127.0.0.1:8787",
	}
}

// Load reads the config file at the XDG path. A missing file yields the
// defaults; the path is returned either way.
func Load() (Config, string, error) {
	path, err := configPath()
	if err != nil {
		return Default(), "", err
	}
	cfg, err := LoadFile(path)
	return cfg, path, err
}

// LoadFile reads path on top of the defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), err
	}
	fc := toFile(Default())
	if err := toml.Unmarshal(data, &fc); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}
	cfg, err := fromFile(fc)
	if err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(toFile(cfg))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks values that would otherwise fail later at use.
func (c Config) Validate() error {
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout: must be positive")
	}
	if c.BenchmarkTimeout <= 0 {
		return fmt.Errorf("benchmark_timeout: must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q (want debug, info, warn, or error)", c.LogLevel)
	}
	if c.APIListen != "" {
		if _, _, err := net.SplitHostPort(c.APIListen); err != nil {
			return fmt.Errorf("api_listen: %w", err)
		}
	}
	return nil
}

// Set updates one field by its file key.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "command_timeout":
		d, err := parseDuration(key, value)
		if err != nil {
			return err
		}
		c.CommandTimeout = d
	case "benchmark_timeout":
		d, err := parseDuration(key, value)
		if err != nil {
			return err
		}
		c.BenchmarkTimeout = d
	case "log_level":
		c.LogLevel = strings.ToLower(value)
	case "log_file":
		c.LogFile = value
	case "network_lookup":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("network_lookup: invalid bool %q", value)
		}
		c.NetworkLookup = b
	case "ping_targets":
		c.PingTargets = splitList(value)
	case "disk_test_dir":
		c.DiskTestDir = value
	case "api_listen":
		c.APIListen = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return c.Validate()
}

// Keys lists the settable keys in file order.
func Keys() []string {
	return []string{
		"command_timeout",
		"benchmark_timeout",
		"log_level",
		"log_file",
		"network_lookup",
		"ping_targets",
		"disk_test_dir",
		"api_listen",
	}
}

// Encode renders cfg as it would be saved.
func Encode(cfg Config) (string, error) {
	data, err := toml.Marshal(toFile(cfg))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func toFile(c Config) fileConfig {
	return fileConfig{
		CommandTimeout:   c.CommandTimeout.String(),
		BenchmarkTimeout: c.BenchmarkTimeout.String(),
		LogLevel:         c.LogLevel,
		LogFile:          c.LogFile,
		NetworkLookup:    c.NetworkLookup,
		PingTargets:      append([]string(nil), c.PingTargets...),
		DiskTestDir:      c.DiskTestDir,
		APIListen:        c.APIListen,
	}
}

func fromFile(fc fileConfig) (Config, error) {
	cmdTimeout, err := parseDuration("command_timeout", fc.CommandTimeout)
	if err != nil {
		return Config{}, err
	}
	benchTimeout, err := parseDuration("benchmark_timeout", fc.BenchmarkTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		CommandTimeout:   cmdTimeout,
		BenchmarkTimeout: benchTimeout,
		LogLevel:         strings.ToLower(strings.TrimSpace(fc.LogLevel)),
		LogFile:          fc.LogFile,
		NetworkLookup:    fc.NetworkLookup,
		PingTargets:      fc.PingTargets,
		DiskTestDir:      fc.DiskTestDir,
		APIListen:        fc.APIListen,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func configPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		var err error
		configHome, err = os.UserConfigDir()
		if err != nil {
			return "", err
		}
	}

	return filepath.Join(configHome, appName, "config.toml"), nil
}

func stateHome() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return stateHome, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state"), nil
}

// RemoveConfigFile deletes the config file if present.
func RemoveConfigFile() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
