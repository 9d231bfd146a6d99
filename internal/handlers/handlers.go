// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package handlers maps menu selections to the host checks behind them.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/shayne/vpstui/internal/config"
	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/report"
)

var ErrUnknownSelection = errors.New("unknown menu selection")

// MenuItem is one entry of the main menu.
type MenuItem struct {
	Number      string   `json:"number" yaml:"number"`
	Key         string   `json:"key" yaml:"key"`
	Label       string   `json:"label" yaml:"label"`
	Description string   `json:"description" yaml:"description"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Title is the menu line: "1. 系统信息".
func (m MenuItem) Title() string {
	return m.Number + ". " + m.Label
}

// Env is what a handler may touch on the host.
type Env struct {
	Runner hostcmd.Runner
	FS     afero.Fs
	Logger *slog.Logger
	Config config.Config
	Now    func() time.Time
	// Steps is told about each command a host change runs.
	Steps StepObserver
}

// StepObserver follows the steps of ApplyPort and ApplyTCP. Every Step is
// closed by exactly one Done or Fail.
type StepObserver interface {
	Step(name string)
	Done(detail string)
	Fail(detail string)
}

type discardSteps struct{}

func (discardSteps) Step(string) {}
func (discardSteps) Done(string) {}
func (discardSteps) Fail(string) {}

func (e Env) withDefaults() Env {
	if e.Runner == nil {
		e.Runner = hostcmd.NewExec()
	}
	if e.FS == nil {
		e.FS = afero.NewOsFs()
	}
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
	if e.Config.CommandTimeout <= 0 {
		e.Config = config.Default()
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Steps == nil {
		e.Steps = discardSteps{}
	}
	return e
}

// Handler gathers data for one menu item. Invoke never fails: command
// errors are recorded as report sources and degrade the report status.
type Handler interface {
	Item() MenuItem
	Invoke(ctx context.Context, env Env) report.Report
}

// Registry holds handlers in menu order.
type Registry struct {
	env      Env
	handlers []Handler
}

// NewRegistry returns a registry over handlers using env for every call.
func NewRegistry(env Env, handlers ...Handler) *Registry {
	return &Registry{env: env.withDefaults(), handlers: handlers}
}

// Default returns the full menu.
func Default(env Env) *Registry {
	return NewRegistry(env,
		SysInfo{},
		Disk{},
		CPU{},
		Network{},
		Proxy{},
		NewPortInfo(PortOpen),
		NewPortInfo(PortClose),
		K3s{},
		K8s{},
		TCP{},
	)
}

// Env returns the environment handlers run with.
func (r *Registry) Env() Env {
	return r.env
}

func (r *Registry) Items() []MenuItem {
	items := make([]MenuItem, 0, len(r.handlers))
	for _, h := range r.handlers {
		items = append(items, h.Item())
	}
	return items
}

// Lookup resolves a selection by number key, item key, alias or label.
func (r *Registry) Lookup(selection string) (Handler, error) {
	sel := strings.ToLower(strings.TrimSpace(selection))
	if sel == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnknownSelection)
	}
	for _, h := range r.handlers {
		item := h.Item()
		if sel == item.Number || sel == item.Key || sel == strings.ToLower(item.Label) || sel == strings.ToLower(item.Title()) {
			return h, nil
		}
		for _, alias := range item.Aliases {
			if sel == alias {
				return h, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, selection)
}

// InvokeReport runs the selected handler. The report is returned even when
// ctx ends mid-run; the error then wraps ctx.Err().
func (r *Registry) InvokeReport(ctx context.Context, selection string) (report.Report, error) {
	h, err := r.Lookup(selection)
	if err != nil {
		return report.Report{}, err
	}
	item := h.Item()
	env := r.env
	env.Logger = env.Logger.With("item", item.Key)

	start := time.Now()
	rep := h.Invoke(ctx, env)
	if rep.Title == "" {
		rep.Title = item.Label
	}
	if rep.Status == "" {
		rep.Status = report.StatusOK
	}
	if err := ctx.Err(); err != nil {
		env.Logger.Info("invocation stopped", "err", err)
		return rep, fmt.Errorf("%s: %w", item.Key, err)
	}
	env.Logger.Info("invoked",
		"status", rep.Status,
		"simulated", rep.Simulated,
		"sources", len(rep.Sources),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return rep, nil
}

// Invoke runs the selected handler and renders its report as text.
func (r *Registry) Invoke(ctx context.Context, selection string) (string, error) {
	rep, err := r.InvokeReport(ctx, selection)
	if err != nil {
		return "", err
	}
	return report.Render(rep), nil
}
