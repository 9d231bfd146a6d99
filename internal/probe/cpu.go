// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package probe

import (
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// CPU summarizes /proc/cpuinfo.
type CPU struct {
	Model      string
	Cores      int
	MHz        float64
	Hypervisor bool
}

// CPUInfo parses /proc/cpuinfo. Architectures that do not report a model
// name (arm64) fall back to the "Hardware" or "CPU part" fields.
func CPUInfo(fs afero.Fs) (CPU, error) {
	data, err := afero.ReadFile(fs, PathCPUInfo)
	if err != nil {
		return CPU{}, err
	}
	var cpu CPU
	var fallback string
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "processor":
			cpu.Cores++
		case "model name":
			if cpu.Model == "" {
				cpu.Model = value
			}
		case "Hardware", "CPU part":
			if fallback == "" {
				fallback = value
			}
		case "cpu MHz":
			if cpu.MHz == 0 {
				if mhz, err := strconv.ParseFloat(value, 64); err == nil {
					cpu.MHz = mhz
				}
			}
		case "flags", "Features":
			for _, flag := range strings.Fields(value) {
				if flag == "hypervisor" {
					cpu.Hypervisor = true
				}
			}
		}
	}
	if cpu.Model == "" {
		cpu.Model = fallback
	}
	return cpu, nil
}
