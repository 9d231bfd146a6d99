// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package probe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Memory holds byte counts from /proc/meminfo.
type Memory struct {
	Total     uint64
	Available uint64
	SwapTotal uint64
	SwapFree  uint64
}

func (m Memory) Used() uint64 {
	if m.Available > m.Total {
		return 0
	}
	return m.Total - m.Available
}

func (m Memory) SwapUsed() uint64 {
	if m.SwapFree > m.SwapTotal {
		return 0
	}
	return m.SwapTotal - m.SwapFree
}

// MemInfo reads memory and swap totals. Kernels without MemAvailable get
// MemFree+Buffers+Cached.
func MemInfo(fs afero.Fs) (Memory, error) {
	data, err := afero.ReadFile(fs, PathMemInfo)
	if err != nil {
		return Memory{}, err
	}
	fields := map[string]uint64{}
	for _, line := range strings.Split(string(data), "\n") {
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		parts := strings.Fields(rest)
		if len(parts) == 0 {
			continue
		}
		n, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			continue
		}
		if len(parts) > 1 && strings.EqualFold(parts[1], "kB") {
			n *= 1024
		}
		fields[strings.TrimSpace(key)] = n
	}
	total, ok := fields["MemTotal"]
	if !ok {
		return Memory{}, fmt.Errorf("%s: missing MemTotal", PathMemInfo)
	}
	mem := Memory{
		Total:     total,
		SwapTotal: fields["SwapTotal"],
		SwapFree:  fields["SwapFree"],
	}
	if avail, ok := fields["MemAvailable"]; ok {
		mem.Available = avail
	} else {
		mem.Available = fields["MemFree"] + fields["Buffers"] + fields["Cached"]
	}
	return mem, nil
}
