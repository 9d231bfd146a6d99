// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"strconv"

	"github.com/shayne/vpstui/internal/report"
)

// guideStep is one numbered block of operator guidance.
type guideStep struct {
	title    string
	commands []string
}

// guide is the static help a handler ships with. It is appended to real
// results and is the whole body of a simulated report.
type guide struct {
	heading string
	intro   string
	steps   []guideStep
	tip     string
}

func (g guide) addTo(rep *report.Report) {
	if g.intro != "" || len(g.steps) > 0 {
		heading := g.heading
		if heading == "" {
			heading = "操作指引"
		}
		sec := rep.Section(heading)
		if g.intro != "" {
			sec.Line(g.intro)
		}
		for i, step := range g.steps {
			if i > 0 || g.intro != "" {
				sec.Line("")
			}
			sec.Line(strconv.Itoa(i+1) + ". " + step.title)
			for _, cmd := range step.commands {
				sec.Line("   " + cmd)
			}
		}
	}
	if g.tip != "" {
		rep.Note(g.tip)
	}
}

// simulate turns rep into a labeled placeholder carrying g.
func (g guide) simulate(rep *report.Report) {
	rep.MarkSimulated()
	g.addTo(rep)
}
