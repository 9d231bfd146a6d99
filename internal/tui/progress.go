// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Progress follows the steps of a host change. On a terminal the open step
// spins and then resolves to ✔ or ✖. Otherwise each transition is one
// key=value line carrying the action and target.
type Progress struct {
	out    io.Writer
	live   bool
	action string
	target string
	color  Colorizer

	mu      sync.Mutex
	current string
	spinner *Spinner
}

func NewProgress(out io.Writer, live bool, action, target string) *Progress {
	return &Progress{
		out:    out,
		live:   live,
		action: strings.TrimSpace(action),
		target: strings.TrimSpace(target),
		color:  NewColorizer(live),
	}
}

// Start prints the banner. Plain output has none.
func (p *Progress) Start() {
	if !p.live {
		return
	}
	label := strings.TrimSpace("vpstui " + p.action)
	if p.target != "" {
		label += " (" + p.target + ")"
	}
	fmt.Fprintf(p.out, "[+] %s\n", label)
}

// Stop drops a step that was never closed.
func (p *Progress) Stop() {
	p.mu.Lock()
	sp := p.spinner
	p.current, p.spinner = "", nil
	p.mu.Unlock()
	if sp != nil {
		sp.Stop(true)
	}
}

// Step opens the step name, dropping any step still open.
func (p *Progress) Step(name string) {
	p.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = name
	if !p.live {
		fmt.Fprintln(p.out, p.kvLine("running", name, ""))
		return
	}
	p.spinner = NewSpinner(p.out,
		WithInterval(120*time.Millisecond),
		WithColor(p.color, ColorYellow),
		WithHideCursor(true),
	)
	p.spinner.Start(name)
}

func (p *Progress) Done(detail string) { p.finish("ok", detail) }

func (p *Progress) Fail(detail string) { p.finish("err", detail) }

func (p *Progress) finish(status, detail string) {
	p.mu.Lock()
	name, sp := p.current, p.spinner
	p.current, p.spinner = "", nil
	p.mu.Unlock()
	if name == "" {
		return
	}
	if sp != nil {
		sp.Stop(true)
	}
	if !p.live {
		fmt.Fprintln(p.out, p.kvLine(status, name, detail))
		return
	}
	mark := p.color.Wrap(ColorGreen, "✔")
	if status == "err" {
		mark = p.color.Wrap(ColorRed, "✖")
	}
	line := mark + " " + name
	if detail = strings.TrimSpace(detail); detail != "" {
		line += " (" + detail + ")"
	}
	fmt.Fprintln(p.out, line)
}

func (p *Progress) kvLine(status, step, detail string) string {
	return kvLine("action", p.action, "target", p.target, "status", status, "step", step, "detail", detail)
}

// kvLine joins key/value pairs, skipping empty ones and quoting values that
// would not survive a split on spaces.
func kvLine(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		key, val := strings.TrimSpace(pairs[i]), strings.TrimSpace(pairs[i+1])
		if key == "" || val == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if strings.ContainsAny(val, " \t\n\"=") {
			val = strconv.Quote(val)
		}
		b.WriteString(key + "=" + val)
	}
	return b.String()
}
