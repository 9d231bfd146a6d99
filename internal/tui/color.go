// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import "os"

const (
	ColorReset  = "\x1b[0m"
	ColorRed    = "\x1b[31m"
	ColorGreen  = "\x1b[32m"
	ColorYellow = "\x1b[33m"
	ColorDim    = "\x1b[2m"
)

type Colorizer struct {
	Enabled bool
}

// NewColorizer honors NO_COLOR and dumb terminals even when enabled is true.
func NewColorizer(enabled bool) Colorizer {
	if !enabled || os.Getenv("NO_COLOR") != "" {
		return Colorizer{}
	}
	if term := os.Getenv("TERM"); term == "" || term == "dumb" {
		return Colorizer{}
	}
	return Colorizer{Enabled: true}
}

func (c Colorizer) Wrap(code, text string) string {
	if !c.Enabled || code == "" {
		return text
	}
	return code + text + ColorReset
}
