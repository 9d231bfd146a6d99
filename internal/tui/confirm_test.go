// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirmNonTTY(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
		{input: "what\nyes\n", want: true},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(tc.input), &out, "开放端口 8080/tcp?", "ufw allow 8080/tcp")
		if err != nil {
			t.Fatalf("Confirm(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("Confirm(%q) = %v, want %v", tc.input, got, tc.want)
		}
		if !strings.HasPrefix(out.String(), "开放端口 8080/tcp?\nufw allow 8080/tcp\n") {
			t.Fatalf("unexpected prompt output: %q", out.String())
		}
	}
}

func TestConfirmRepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	if _, err := Confirm(strings.NewReader("maybe\nn\n"), &out, "t", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(out.String(), "确认 [y/N]: ") != 2 {
		t.Fatalf("expected two prompts, got %q", out.String())
	}
}
