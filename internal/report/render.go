// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

// SimulatedBanner heads every report built from placeholder content.
const SimulatedBanner = "[模拟数据] 本机无法执行检测命令，以下内容为示例与操作指引"

// Render formats r as plain text for the content pane and stdout.
func Render(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n\n", r.Title)
	if r.Simulated {
		b.WriteString(SimulatedBanner)
		b.WriteString("\n\n")
	}
	for i, section := range r.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		renderSection(&b, section)
	}
	if len(r.Notes) > 0 {
		if len(r.Sections) > 0 {
			b.WriteString("\n")
		}
		for _, note := range r.Notes {
			b.WriteString("提示: ")
			b.WriteString(note)
			b.WriteString("\n")
		}
	}
	if len(r.Sources) > 0 {
		b.WriteString("\nSources:\n")
		for _, src := range r.Sources {
			b.WriteString("  ")
			b.WriteString(renderSource(src))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderSection(b *strings.Builder, s Section) {
	if s.Heading != "" {
		fmt.Fprintf(b, "--- %s ---\n", s.Heading)
	}
	width := 0
	for _, row := range s.Rows {
		if w := runewidth.StringWidth(row.Label); w > width {
			width = w
		}
	}
	for _, row := range s.Rows {
		b.WriteString(runewidth.FillRight(row.Label, width))
		b.WriteString(" : ")
		b.WriteString(row.Value)
		b.WriteString("\n")
	}
	for _, line := range s.Lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func renderSource(src Source) string {
	state := "ok  "
	if !src.OK() {
		state = "fail"
	}
	line := fmt.Sprintf("%s %s", state, src.Command)
	if src.Duration > 0 {
		line += fmt.Sprintf(" (%s)", FormatElapsed(src.Duration))
	}
	switch {
	case src.Err != "":
		line += ": " + src.Err
	case src.ExitCode != 0:
		line += fmt.Sprintf(": exit %d", src.ExitCode)
	}
	return line
}

// ToYAML encodes r for `--format yaml`.
func ToYAML(r Report) (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report yaml: %w", err)
	}
	return string(data), nil
}

// ToJSON encodes r for `--format json` and the HTTP API.
func ToJSON(r Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report json: %w", err)
	}
	return string(data) + "\n", nil
}

// Encode renders r in the named format: text, yaml or json.
func Encode(r Report, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return Render(r), nil
	case "yaml", "yml":
		return ToYAML(r)
	case "json":
		return ToJSON(r)
	default:
		return "", fmt.Errorf("unknown format %q (want text, yaml, or json)", format)
	}
}
