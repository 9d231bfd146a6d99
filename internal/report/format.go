// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	kib = 1024
	mib = kib * 1024
	gib = mib * 1024
	tib = gib * 1024
)

// FormatBytesGiB formats b as GiB with one decimal.
func FormatBytesGiB(b uint64) string {
	return fmt.Sprintf("%.1f GiB", float64(b)/gib)
}

// FormatBytes formats b with the largest fitting binary unit.
func FormatBytes(b uint64) string {
	switch {
	case b >= tib:
		return fmt.Sprintf("%.1f TiB", float64(b)/tib)
	case b >= gib:
		return fmt.Sprintf("%.1f GiB", float64(b)/gib)
	case b >= mib:
		return fmt.Sprintf("%.1f MiB", float64(b)/mib)
	case b >= kib:
		return fmt.Sprintf("%.1f KiB", float64(b)/kib)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// FormatUptime formats d as "1d 2h 3m", "2h 3m" or "3m".
func FormatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	days := secs / 86400
	hours := (secs % 86400) / 3600
	minutes := (secs % 3600) / 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatElapsed formats a command duration: "850ms", "12.3s", "2:05".
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		secs := int64(d.Seconds())
		return fmt.Sprintf("%d:%02d", secs/60, secs%60)
	}
}

// ParseSize parses df/lsblk style sizes ("20G", "1.5T", "512K", "0") into
// bytes using 1024 based units. An optional trailing "B" or "iB" is accepted.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	upper := strings.ToUpper(s)
	upper = strings.TrimSuffix(upper, "IB")
	if len(upper) > 1 {
		upper = strings.TrimSuffix(upper, "B")
	}
	mult := float64(1)
	switch upper[len(upper)-1] {
	case 'K':
		mult = kib
	case 'M':
		mult = mib
	case 'G':
		mult = gib
	case 'T':
		mult = tib
	case 'P':
		mult = tib * 1024
	}
	number := upper
	if mult != 1 {
		number = upper[:len(upper)-1]
	}
	n, err := strconv.ParseFloat(number, 64)
	if err != nil || n < 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return uint64(n * mult), nil
}

// Percent returns used/total as a percentage, 0 when total is 0.
func Percent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}

// ProgressBar draws pct (0-100) as a bracketed bar of width cells.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return "[]"
	}
	if pct < 0 || math.IsNaN(pct) {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct * float64(width) / 100)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// FormatSpeed formats a throughput given in MB/s.
func FormatSpeed(mbps float64) string {
	if mbps >= 1000 {
		return fmt.Sprintf("%.2f GB/s", mbps/1024)
	}
	return fmt.Sprintf("%.2f MB/s", mbps)
}

// FormatIOPS formats an operations-per-second figure.
func FormatIOPS(iops float64) string {
	if iops >= 1000 {
		return fmt.Sprintf("%.1fK", iops/1000)
	}
	return fmt.Sprintf("%.0f", iops)
}
