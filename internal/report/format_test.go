// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"testing"
	"time"
)

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{in: 0, want: "0m"},
		{in: 59 * time.Minute, want: "59m"},
		{in: 2*time.Hour + 3*time.Minute, want: "2h 3m"},
		{in: 26*time.Hour + 3*time.Minute + 10*time.Second, want: "1d 2h 3m"},
	}
	for _, tc := range cases {
		if got := FormatUptime(tc.in); got != tc.want {
			t.Fatalf("FormatUptime(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{in: "0", want: 0},
		{in: "512", want: 512},
		{in: "4K", want: 4096},
		{in: "1.5G", want: 1610612736},
		{in: "2T", want: 2 << 40},
		{in: "100M", want: 100 << 20},
		{in: "10GiB", want: 10 << 30},
		{in: "10gb", want: 10 << 30},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "G", "abc", "-1K", "B"} {
		if _, err := ParseSize(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[uint64]string{
		0:       "0 B",
		1023:    "1023 B",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
		3 << 30: "3.0 GiB",
		1 << 40: "1.0 TiB",
	}
	for in, want := range cases {
		if got := FormatBytes(in); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
	if got := FormatBytesGiB(1 << 29); got != "0.5 GiB" {
		t.Fatalf("FormatBytesGiB = %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(50, 10); got != "[█████░░░░░]" {
		t.Fatalf("unexpected bar %q", got)
	}
	if got := ProgressBar(150, 4); got != "[████]" {
		t.Fatalf("expected clamp, got %q", got)
	}
	if got := ProgressBar(-3, 4); got != "[░░░░]" {
		t.Fatalf("expected empty bar, got %q", got)
	}
}

func TestPercent(t *testing.T) {
	if Percent(1, 0) != 0 {
		t.Fatalf("expected zero for empty total")
	}
	if got := Percent(1, 4); got != 25 {
		t.Fatalf("Percent = %v", got)
	}
}

func TestFormatSpeedAndIOPS(t *testing.T) {
	if got := FormatSpeed(512); got != "512.00 MB/s" {
		t.Fatalf("FormatSpeed = %q", got)
	}
	if got := FormatSpeed(2048); got != "2.00 GB/s" {
		t.Fatalf("FormatSpeed = %q", got)
	}
	if got := FormatIOPS(12345); got != "12.3K" {
		t.Fatalf("FormatIOPS = %q", got)
	}
	if got := FormatIOPS(999); got != "999" {
		t.Fatalf("FormatIOPS = %q", got)
	}
}
