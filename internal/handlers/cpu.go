// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shayne/vpstui/internal/probe"
	"github.com/shayne/vpstui/internal/report"
)

const defaultCPUBenchDuration = 3 * time.Second

var cpuGuide = guide{
	steps: []guideStep{
		{title: "使用 sysbench 测试", commands: []string{
			"apt-get install sysbench  # Debian/Ubuntu",
			"sysbench cpu --cpu-max-prime=20000 run",
			"sysbench cpu --cpu-max-prime=20000 --threads=4 run",
		}},
		{title: "使用 stress-ng 压力测试", commands: []string{"stress-ng --cpu 4 --cpu-method all --verify --timeout 60s"}},
		{title: "使用 7-zip 基准测试", commands: []string{"apt-get install p7zip-full", "7z b"}},
	},
	tip: "运行CPU测试时会占用大量系统资源，请谨慎使用。",
}

// CPU runs sysbench when present and a built-in prime benchmark otherwise.
type CPU struct {
	BenchDuration time.Duration
}

func (CPU) Item() MenuItem {
	return MenuItem{
		Number:      "3",
		Key:         "cpu",
		Label:       "CPU测试",
		Description: "测试CPU性能",
		Aliases:     []string{"sysbench"},
	}
}

func (c CPU) Invoke(ctx context.Context, env Env) report.Report {
	rep := report.New("CPU测试")

	cpu, cpuErr := probe.CPUInfo(env.FS)
	if cpuErr != nil {
		rep.AddFileSource(probe.PathCPUInfo, cpuErr)
	}
	cores := cpu.Cores
	if cores <= 0 {
		cores = 1
	}
	info := rep.Section("CPU 信息")
	info.Row("Model", cpu.Model)
	info.Row("Cores", strconv.Itoa(cpu.Cores))
	if cpu.MHz > 0 {
		info.Row("Frequency", fmt.Sprintf("%.0f MHz", cpu.MHz))
	}

	benchmarked := false
	if installed(env, "sysbench") {
		benchmarked = cpuSysbench(ctx, env, &rep, cores)
	}
	if !benchmarked && ctx.Err() == nil {
		d := c.BenchDuration
		if d <= 0 {
			d = defaultCPUBenchDuration
		}
		res, err := benchCPU(ctx, d)
		if err != nil {
			env.Logger.Warn("builtin cpu benchmark", "err", err)
		} else {
			benchmarked = true
			rep.Section("性能测试 (内置)").
				Row("单线程", fmt.Sprintf("%.0f primes/s", res.Single)).
				Row(fmt.Sprintf("多线程 (%d)", res.Threads), fmt.Sprintf("%.0f primes/s", res.Multi)).
				Line(fmt.Sprintf("每轮校验 %d 以内的全部素数", benchPrimeMax))
		}
	}

	if !benchmarked && cpuErr != nil {
		cpuGuide.simulate(&rep)
		return rep
	}
	if !benchmarked {
		rep.Degrade(report.StatusFail)
	}
	rep.Note(cpuGuide.tip)
	return rep
}

func cpuSysbench(ctx context.Context, env Env, rep *report.Report, cores int) bool {
	sec := rep.Section("性能测试 (sysbench)")
	ok := false
	counts := []int{1}
	if cores > 1 {
		counts = append(counts, cores)
	}
	for _, threads := range counts {
		spec := command("sysbench", "cpu", "--cpu-max-prime=20000", "--threads="+strconv.Itoa(threads), "--time=10", "run")
		spec.Timeout = env.Config.BenchmarkTimeout
		label := "单线程"
		if threads > 1 {
			label = fmt.Sprintf("多线程 (%d)", threads)
		}
		eps, parsed := parseSysbenchEPS(run(ctx, env, rep, spec).stdout())
		if !parsed {
			sec.Row(label, "失败")
			continue
		}
		ok = true
		sec.Row(label, fmt.Sprintf("%.2f events/s", eps))
	}
	return ok
}

// parseSysbenchEPS reads "events per second:  1234.56" from sysbench output.
func parseSysbenchEPS(out string) (float64, bool) {
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "events per second" {
			continue
		}
		eps, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		return eps, true
	}
	return 0, false
}
