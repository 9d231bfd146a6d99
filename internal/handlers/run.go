// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/report"
)

const maxParallelProbes = 4

// call is one command run and its outcome.
type call struct {
	spec hostcmd.Spec
	res  hostcmd.Result
	err  error
}

func (c call) ok() bool {
	return c.err == nil && c.res.OK()
}

func (c call) stdout() string {
	if !c.ok() {
		return ""
	}
	return c.res.Stdout
}

func installed(env Env, name string) bool {
	return hostcmd.Exists(env.Runner, name)
}

func command(name string, args ...string) hostcmd.Spec {
	return hostcmd.Spec{Name: name, Args: args}
}

// run executes spec and records it as a source of rep.
func run(ctx context.Context, env Env, rep *report.Report, spec hostcmd.Spec) call {
	c := execute(ctx, env, spec)
	rep.AddSource(c.spec, c.res, c.err)
	return c
}

func execute(ctx context.Context, env Env, spec hostcmd.Spec) call {
	if spec.Timeout <= 0 {
		spec.Timeout = env.Config.CommandTimeout
	}
	res, err := env.Runner.Run(ctx, spec)
	if err != nil {
		env.Logger.Debug("probe failed", "cmd", hostcmd.CommandLine(spec), "err", err)
	}
	return call{spec: spec, res: res, err: err}
}

// fanOut runs specs concurrently and returns the calls in input order.
// Failures never cancel siblings; only ctx does.
func fanOut(ctx context.Context, env Env, specs []hostcmd.Spec) []call {
	calls := make([]call, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelProbes)
	for i, spec := range specs {
		g.Go(func() error {
			calls[i] = execute(gctx, env, spec)
			return nil
		})
	}
	_ = g.Wait()
	return calls
}

func record(rep *report.Report, calls ...call) {
	for _, c := range calls {
		rep.AddSource(c.spec, c.res, c.err)
	}
}

// anyOK reports whether at least one call exited zero.
func anyOK(calls []call) bool {
	for _, c := range calls {
		if c.ok() {
			return true
		}
	}
	return false
}
