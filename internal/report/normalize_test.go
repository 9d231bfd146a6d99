// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "ansi", in: "\x1b[1;32mPASS\x1b[0m done", want: "PASS done"},
		{name: "crlf", in: "a\r\nb\r\n", want: "a\nb"},
		{name: "progress overwrite", in: "10%\r50%\r100%\nok", want: "100%\nok"},
		{name: "trailing spaces", in: "a   \nb\t", want: "a\nb"},
		{name: "blank runs", in: "a\n\n\n\nb\n\nc", want: "a\n\nb\n\nc"},
		{name: "outer blanks", in: "\n\n  \nx\n\n", want: "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
