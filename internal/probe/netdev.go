// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package probe

import (
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Interface holds the /proc/net/dev counters of one network interface.
type Interface struct {
	Name      string
	RxBytes   uint64
	RxPackets uint64
	TxBytes   uint64
	TxPackets uint64
}

// NetDev parses /proc/net/dev, skipping the two header lines.
func NetDev(fs afero.Fs) ([]Interface, error) {
	data, err := afero.ReadFile(fs, PathNetDev)
	if err != nil {
		return nil, err
	}
	var ifaces []Interface
	for _, line := range strings.Split(string(data), "\n") {
		name, counters, ok := strings.Cut(line, ":")
		if !ok || strings.Contains(name, "|") {
			continue
		}
		fields := strings.Fields(counters)
		if len(fields) < 16 {
			continue
		}
		ifaces = append(ifaces, Interface{
			Name:      strings.TrimSpace(name),
			RxBytes:   parseCounter(fields[0]),
			RxPackets: parseCounter(fields[1]),
			TxBytes:   parseCounter(fields[8]),
			TxPackets: parseCounter(fields[9]),
		})
	}
	return ifaces, nil
}

// SelectInterface returns the interface called name, or the first
// non-loopback one when name is empty.
func SelectInterface(ifaces []Interface, name string) (Interface, bool) {
	for _, iface := range ifaces {
		if name != "" && iface.Name == name {
			return iface, true
		}
	}
	if name != "" {
		return Interface{}, false
	}
	for _, iface := range ifaces {
		if !strings.HasPrefix(iface.Name, "lo") {
			return iface, true
		}
	}
	return Interface{}, false
}

func parseCounter(s string) uint64 {
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}
