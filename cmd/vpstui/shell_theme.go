// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/shayne/vpstui/internal/report"
)

type ShellTheme struct {
	Enabled      bool
	Brand        lipgloss.Style
	Label        lipgloss.Style
	Value        lipgloss.Style
	Muted        lipgloss.Style
	Error        lipgloss.Style
	MenuItem     lipgloss.Style
	MenuSelected lipgloss.Style
	Pane         lipgloss.Style
	PaneFocused  lipgloss.Style
	HelpKey      lipgloss.Style
	HelpText     lipgloss.Style
	StatusOK     lipgloss.Style
	StatusWarn   lipgloss.Style
	StatusFail   lipgloss.Style
	StatusBusy   lipgloss.Style
}

func shellTheme() ShellTheme {
	return newShellTheme(shellStylesEnabled())
}

// newShellTheme returns the styled theme, or a plain one whose panes keep
// their borders so the layout is the same without color.
func newShellTheme(enabled bool) ShellTheme {
	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	if !enabled {
		return ShellTheme{
			Pane:         border,
			PaneFocused:  border.BorderStyle(lipgloss.ThickBorder()),
			MenuSelected: lipgloss.NewStyle().Reverse(true),
		}
	}
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	accent := lipgloss.Color("81")
	return ShellTheme{
		Enabled:      true,
		Brand:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		Label:        lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Value:        lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Muted:        muted,
		Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		MenuItem:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		MenuSelected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(accent),
		Pane:         border.BorderForeground(lipgloss.Color("240")),
		PaneFocused:  border.BorderForeground(accent),
		HelpKey:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		HelpText:     muted,
		StatusOK:     lipgloss.NewStyle().Foreground(lipgloss.Color("77")),
		StatusWarn:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		StatusFail:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		StatusBusy:   lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	}
}

func (t ShellTheme) status(s report.Status) lipgloss.Style {
	switch s {
	case report.StatusOK:
		return t.StatusOK
	case report.StatusWarn:
		return t.StatusWarn
	default:
		return t.StatusFail
	}
}

func shellStylesEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	termValue := os.Getenv("TERM")
	if termValue == "" || termValue == "dumb" {
		return false
	}
	return true
}
