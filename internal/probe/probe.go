// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package probe reads host facts from procfs and /etc through an afero
// filesystem.
package probe

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	PathOSRelease  = "/etc/os-release"
	PathResolvConf = "/etc/resolv.conf"
	PathUptime     = "/proc/uptime"
	PathLoadAvg    = "/proc/loadavg"
	PathMemInfo    = "/proc/meminfo"
	PathCPUInfo    = "/proc/cpuinfo"
	PathNetDev     = "/proc/net/dev"
	PathHostname   = "/proc/sys/kernel/hostname"
	PathKernel     = "/proc/sys/kernel/osrelease"
	procSys        = "/proc/sys"
)

func readTrimmed(fs afero.Fs, name string) (string, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Hostname returns the kernel host name.
func Hostname(fs afero.Fs) (string, error) {
	return readTrimmed(fs, PathHostname)
}

// Kernel returns the running kernel release.
func Kernel(fs afero.Fs) (string, error) {
	return readTrimmed(fs, PathKernel)
}

// SysctlPath maps a dotted sysctl key to its /proc/sys file.
func SysctlPath(key string) string {
	return path.Join(procSys, strings.ReplaceAll(key, ".", "/"))
}

// Sysctl reads one sysctl value. Multi-field values are joined by a single
// space, matching `sysctl -n` output.
func Sysctl(fs afero.Fs, key string) (string, error) {
	value, err := readTrimmed(fs, SysctlPath(key))
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(value), " "), nil
}

// CongestionControl returns the active TCP congestion control algorithm.
func CongestionControl(fs afero.Fs) (string, error) {
	return Sysctl(fs, "net.ipv4.tcp_congestion_control")
}

// OSRelease parses /etc/os-release into a key/value map with quotes removed.
func OSRelease(fs afero.Fs) (map[string]string, error) {
	data, err := afero.ReadFile(fs, PathOSRelease)
	if err != nil {
		return nil, err
	}
	values := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[key] = strings.Trim(value, `"'`)
	}
	return values, scanner.Err()
}

// Distro returns PRETTY_NAME, falling back to NAME VERSION_ID.
func Distro(fs afero.Fs) (string, error) {
	values, err := OSRelease(fs)
	if err != nil {
		return "", err
	}
	if pretty := values["PRETTY_NAME"]; pretty != "" {
		return pretty, nil
	}
	name := strings.TrimSpace(values["NAME"] + " " + values["VERSION_ID"])
	if name == "" {
		return "", fmt.Errorf("%s: no PRETTY_NAME or NAME", PathOSRelease)
	}
	return name, nil
}

// Uptime returns the time since boot.
func Uptime(fs afero.Fs) (time.Duration, error) {
	value, err := readTrimmed(fs, PathUptime)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%s: empty", PathUptime)
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", PathUptime, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// LoadAvg returns the 1, 5 and 15 minute load averages as "a b c".
func LoadAvg(fs afero.Fs) (string, error) {
	value, err := readTrimmed(fs, PathLoadAvg)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(value)
	if len(fields) < 3 {
		return "", fmt.Errorf("%s: expected 3 fields, got %d", PathLoadAvg, len(fields))
	}
	return strings.Join(fields[:3], " "), nil
}

// Nameservers lists the nameserver entries of /etc/resolv.conf in order.
func Nameservers(fs afero.Fs) ([]string, error) {
	data, err := afero.ReadFile(fs, PathResolvConf)
	if err != nil {
		return nil, err
	}
	var servers []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "nameserver" {
			servers = append(servers, fields[1])
		}
	}
	return servers, nil
}
