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

	"golang.org/x/sync/errgroup"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/probe"
	"github.com/shayne/vpstui/internal/report"
)

var networkGuide = guide{
	steps: []guideStep{
		{title: "使用 speedtest-cli", commands: []string{"pip install speedtest-cli", "speedtest-cli --simple"}},
		{title: "使用 iperf3 测试", commands: []string{"iperf3 -s              # 服务端", "iperf3 -c server_ip -R # 客户端, 测试下载"}},
		{title: "网络延迟测试", commands: []string{"ping -c 10 8.8.8.8", "mtr google.com"}},
		{title: "一键测速脚本", commands: []string{"wget -qO- bench.sh | bash"}},
	},
	tip: "网速测试会消耗流量，请注意VPS的流量限制。",
}

// Network measures latency to configured targets and the local resolvers,
// plus bandwidth through speedtest-cli when installed.
type Network struct {
	DNS DNSProber
}

func (Network) Item() MenuItem {
	return MenuItem{
		Number:      "4",
		Key:         "network",
		Label:       "网速测试",
		Description: "测试网络速度",
		Aliases:     []string{"net", "speedtest", "ping"},
	}
}

type pingStats struct {
	Sent     int
	Received int
	Loss     string
	Min      string
	Avg      string
	Max      string
}

// parsePing reads the summary of iputils or busybox ping.
func parsePing(out string) (pingStats, bool) {
	var stats pingStats
	found := false
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "packets transmitted") {
			for _, part := range strings.Split(line, ",") {
				fields := strings.Fields(part)
				if len(fields) == 0 {
					continue
				}
				switch {
				case strings.Contains(part, "transmitted"):
					stats.Sent, _ = strconv.Atoi(fields[0])
					found = true
				case strings.Contains(part, "received"):
					stats.Received, _ = strconv.Atoi(fields[0])
				case strings.Contains(part, "packet loss"):
					stats.Loss = fields[0]
				}
			}
		}
		if strings.HasPrefix(line, "rtt ") || strings.HasPrefix(line, "round-trip ") {
			_, values, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			fields := strings.Fields(values)
			if len(fields) == 0 {
				continue
			}
			parts := strings.Split(fields[0], "/")
			if len(parts) >= 3 {
				stats.Min, stats.Avg, stats.Max = parts[0], parts[1], parts[2]
			}
		}
	}
	return stats, found
}

// parseSpeedtest reads `speedtest-cli --simple` output into label/value pairs.
func parseSpeedtest(out string) []report.Row {
	var rows []report.Row
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		switch key {
		case "Ping", "Download", "Upload":
			rows = append(rows, report.Row{Label: key, Value: strings.TrimSpace(value)})
		}
	}
	return rows
}

type dnsResult struct {
	server string
	rtt    time.Duration
	err    error
}

func (n Network) Invoke(ctx context.Context, env Env) report.Report {
	rep := report.New("网速测试")

	targets := env.Config.PingTargets
	var pings []call
	if installed(env, "ping") && len(targets) > 0 {
		specs := make([]hostcmd.Spec, 0, len(targets))
		for _, target := range targets {
			specs = append(specs, command("ping", "-c", "4", "-W", "2", target))
		}
		pings = fanOut(ctx, env, specs)
		record(&rep, pings...)
	}

	servers, err := probe.Nameservers(env.FS)
	if err != nil {
		rep.AddFileSource(probe.PathResolvConf, err)
	}
	dnsResults := n.probeResolvers(ctx, servers)

	measured := false
	if len(pings) > 0 {
		sec := rep.Section("延迟测试 (ping)")
		for i, c := range pings {
			stats, ok := parsePing(c.res.Stdout)
			if !ok {
				sec.Row(targets[i], "失败")
				continue
			}
			measured = measured || stats.Received > 0
			value := fmt.Sprintf("%d/%d received, loss %s", stats.Received, stats.Sent, stats.Loss)
			if stats.Avg != "" {
				value += fmt.Sprintf(", rtt %s/%s/%s ms", stats.Min, stats.Avg, stats.Max)
			}
			sec.Row(targets[i], value)
		}
	}

	if len(dnsResults) > 0 {
		sec := rep.Section("DNS 解析延迟")
		for _, res := range dnsResults {
			if res.err != nil {
				sec.Row(res.server, "失败: "+res.err.Error())
				rep.Degrade(report.StatusWarn)
				continue
			}
			measured = true
			sec.Row(res.server, fmt.Sprintf("%.1f ms", float64(res.rtt.Microseconds())/1000))
		}
	}

	if installed(env, "speedtest-cli") && ctx.Err() == nil {
		spec := command("speedtest-cli", "--simple")
		spec.Timeout = env.Config.BenchmarkTimeout
		// speedtest-cli block-buffers stdout on a pipe and loses it on timeout.
		spec.PTY = true
		c := run(ctx, env, &rep, spec)
		if rows := parseSpeedtest(c.stdout()); len(rows) > 0 {
			measured = true
			sec := rep.Section("带宽测试 (speedtest-cli)")
			for _, row := range rows {
				sec.Row(row.Label, row.Value)
			}
		}
	}

	if !measured {
		networkGuide.simulate(&rep)
		return rep
	}
	rep.Note(networkGuide.tip)
	return rep
}

func (n Network) probeResolvers(ctx context.Context, servers []string) []dnsResult {
	if len(servers) == 0 {
		return nil
	}
	prober := n.DNS
	if prober == nil {
		prober = NewDNSClient(dnsProbeTimeout)
	}
	results := make([]dnsResult, len(servers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelProbes)
	for i, server := range servers {
		g.Go(func() error {
			rtt, err := prober.Probe(gctx, server)
			results[i] = dnsResult{server: server, rtt: rtt, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
