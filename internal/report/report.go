// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report holds the structured result of a menu action and renders it
// as text, YAML or JSON.
package report

import (
	"time"

	"github.com/shayne/vpstui/internal/hostcmd"
)

// Status summarizes how trustworthy a report is.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

func (s Status) rank() int {
	switch s {
	case StatusWarn:
		return 1
	case StatusFail:
		return 2
	default:
		return 0
	}
}

// Report is the output of one handler invocation.
type Report struct {
	Title     string    `json:"title" yaml:"title"`
	Status    Status    `json:"status" yaml:"status"`
	Simulated bool      `json:"simulated" yaml:"simulated"`
	Sections  []Section `json:"sections,omitempty" yaml:"sections,omitempty"`
	Notes     []string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	Sources   []Source  `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Section is a headed group of label/value rows followed by free lines.
type Section struct {
	Heading string   `json:"heading,omitempty" yaml:"heading,omitempty"`
	Rows    []Row    `json:"rows,omitempty" yaml:"rows,omitempty"`
	Lines   []string `json:"lines,omitempty" yaml:"lines,omitempty"`
}

type Row struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Source records one command or file that fed the report.
type Source struct {
	Command  string        `json:"command" yaml:"command"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Err      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the source ran and exited zero.
func (s Source) OK() bool {
	return s.Err == "" && s.ExitCode == 0
}

// New returns an empty report with status ok.
func New(title string) Report {
	return Report{Title: title, Status: StatusOK}
}

// Section appends a section and returns it for filling. The pointer is valid
// until the next call to Section.
func (r *Report) Section(heading string) *Section {
	r.Sections = append(r.Sections, Section{Heading: heading})
	return &r.Sections[len(r.Sections)-1]
}

// Note appends a 提示 line.
func (r *Report) Note(note string) {
	r.Notes = append(r.Notes, note)
}

// Degrade raises the status to s when s is worse than the current one.
func (r *Report) Degrade(s Status) {
	if s.rank() > r.Status.rank() {
		r.Status = s
	}
}

// AddSource records a command run. Errors and non-zero exits degrade the
// report to warn.
func (r *Report) AddSource(spec hostcmd.Spec, res hostcmd.Result, err error) {
	src := Source{
		Command:  hostcmd.CommandLine(spec),
		ExitCode: res.ExitCode,
		Duration: res.Duration,
	}
	if err != nil {
		src.Err = err.Error()
	}
	r.Sources = append(r.Sources, src)
	if !src.OK() {
		r.Degrade(StatusWarn)
	}
}

// AddFileSource records a file read.
func (r *Report) AddFileSource(path string, err error) {
	r.addFile("read "+path, err)
}

// AddFileWrite records a file write.
func (r *Report) AddFileWrite(path string, err error) {
	r.addFile("write "+path, err)
}

func (r *Report) addFile(action string, err error) {
	src := Source{Command: action}
	if err != nil {
		src.Err = err.Error()
		src.ExitCode = -1
	}
	r.Sources = append(r.Sources, src)
}

// MarkSimulated flags the report as placeholder content.
func (r *Report) MarkSimulated() {
	r.Simulated = true
	r.Degrade(StatusWarn)
}

// Row appends a label/value row. Empty values render as Unknown.
func (s *Section) Row(label, value string) *Section {
	if value == "" {
		value = "Unknown"
	}
	s.Rows = append(s.Rows, Row{Label: label, Value: value})
	return s
}

// Line appends a free-form line.
func (s *Section) Line(line string) *Section {
	s.Lines = append(s.Lines, line)
	return s
}

// Text appends raw command output after normalizing it.
func (s *Section) Text(raw string) *Section {
	normalized := Normalize(raw)
	if normalized == "" {
		return s
	}
	s.Lines = append(s.Lines, splitLines(normalized)...)
	return s
}
