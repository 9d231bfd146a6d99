// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/report"
)

var (
	ErrInvalidPort = errors.New("invalid port")
	ErrNoFirewall  = errors.New("no supported firewall found (ufw, firewalld, iptables)")
)

// PortAction is the direction of a firewall change.
type PortAction string

const (
	PortOpen  PortAction = "open"
	PortClose PortAction = "close"
)

// ParsePortAction accepts open or close.
func ParsePortAction(s string) (PortAction, error) {
	switch PortAction(strings.ToLower(strings.TrimSpace(s))) {
	case PortOpen:
		return PortOpen, nil
	case PortClose:
		return PortClose, nil
	default:
		return "", fmt.Errorf("unknown port action %q (want open or close)", s)
	}
}

// Firewall names a host firewall frontend.
type Firewall string

const (
	FirewallNone      Firewall = ""
	FirewallUFW       Firewall = "ufw"
	FirewallFirewalld Firewall = "firewalld"
	FirewallIPTables  Firewall = "iptables"
)

// DetectFirewall returns the first installed backend, preferring ufw, then
// firewalld, then iptables.
func DetectFirewall(r hostcmd.Runner) Firewall {
	switch {
	case hostcmd.Exists(r, "ufw"):
		return FirewallUFW
	case hostcmd.Exists(r, "firewall-cmd"):
		return FirewallFirewalld
	case hostcmd.Exists(r, "iptables"):
		return FirewallIPTables
	default:
		return FirewallNone
	}
}

// Port is a single port and protocol.
type Port struct {
	Number int
	Proto  string
}

func (p Port) String() string {
	return strconv.Itoa(p.Number) + "/" + p.Proto
}

// ParsePort parses "8080" or "8080/udp". The protocol defaults to tcp.
func ParsePort(s string) (Port, error) {
	raw := strings.TrimSpace(s)
	num, proto, hasProto := strings.Cut(raw, "/")
	if !hasProto {
		proto = "tcp"
	}
	proto = strings.ToLower(proto)
	if proto != "tcp" && proto != "udp" {
		return Port{}, fmt.Errorf("%w %q: protocol must be tcp or udp", ErrInvalidPort, s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > 65535 {
		return Port{}, fmt.Errorf("%w %q: want 1-65535", ErrInvalidPort, s)
	}
	return Port{Number: n, Proto: proto}, nil
}

// PortCommands returns the privileged commands that apply action to port on
// the given backend, in execution order.
func PortCommands(fw Firewall, action PortAction, port Port) ([]hostcmd.Spec, error) {
	sudo := func(name string, args ...string) hostcmd.Spec {
		spec := command(name, args...)
		spec.Sudo = true
		return spec
	}
	switch fw {
	case FirewallUFW:
		if action == PortOpen {
			return []hostcmd.Spec{sudo("ufw", "allow", port.String())}, nil
		}
		return []hostcmd.Spec{sudo("ufw", "delete", "allow", port.String())}, nil
	case FirewallFirewalld:
		flag := "--add-port=" + port.String()
		if action == PortClose {
			flag = "--remove-port=" + port.String()
		}
		return []hostcmd.Spec{
			sudo("firewall-cmd", "--zone=public", flag, "--permanent"),
			sudo("firewall-cmd", "--reload"),
		}, nil
	case FirewallIPTables:
		op := "-A"
		if action == PortClose {
			op = "-D"
		}
		return []hostcmd.Spec{
			sudo("iptables", op, "INPUT", "-p", port.Proto, "--dport", strconv.Itoa(port.Number), "-j", "ACCEPT"),
		}, nil
	default:
		return nil, ErrNoFirewall
	}
}

// PlanPort detects the firewall and returns the commands for the change
// without running them.
func PlanPort(env Env, action PortAction, port Port) (Firewall, []hostcmd.Spec, error) {
	env = env.withDefaults()
	fw := DetectFirewall(env.Runner)
	specs, err := PortCommands(fw, action, port)
	return fw, specs, err
}

// ApplyPort runs the firewall change and reports every command it ran. It
// stops at the first failing command.
func ApplyPort(ctx context.Context, env Env, action PortAction, port Port) (report.Report, error) {
	env = env.withDefaults()
	title := "开放端口 " + port.String()
	if action == PortClose {
		title = "关闭端口 " + port.String()
	}
	rep := report.New(title)
	fw, specs, err := PlanPort(env, action, port)
	if err != nil {
		rep.Degrade(report.StatusFail)
		rep.Note(err.Error())
		return rep, err
	}
	sec := rep.Section("防火墙")
	sec.Row("Backend", string(fw))
	for _, spec := range specs {
		line := hostcmd.CommandLine(spec)
		env.Steps.Step(line)
		c := run(ctx, env, &rep, spec)
		sec.Line("$ " + line)
		out := strings.TrimSpace(c.res.Output())
		if out != "" {
			sec.Text(out)
		}
		if !c.ok() {
			err := callError(c)
			env.Steps.Fail(err.Error())
			rep.Degrade(report.StatusFail)
			return rep, fmt.Errorf("%s: %w", line, err)
		}
		env.Steps.Done(firstLine(out))
	}
	env.Logger.Info("port changed", "firewall", fw, "action", action, "port", port.String())
	return rep, nil
}

// ruleListing is the read-only rule dump for each backend.
func ruleListing(fw Firewall) (hostcmd.Spec, bool) {
	var spec hostcmd.Spec
	switch fw {
	case FirewallUFW:
		spec = command("ufw", "status", "verbose")
	case FirewallFirewalld:
		spec = command("firewall-cmd", "--list-all")
	case FirewallIPTables:
		spec = command("iptables", "-L", "INPUT", "-n", "--line-numbers")
	default:
		return spec, false
	}
	spec.Sudo = true
	return spec, true
}

var openPortGuide = guide{
	intro: "不同系统的端口开放方法：",
	steps: []guideStep{
		{title: "使用 iptables (传统方法)", commands: []string{
			"iptables -A INPUT -p tcp --dport 8080 -j ACCEPT",
			"iptables -A INPUT -p tcp --dport 8000:9000 -j ACCEPT",
			"iptables-save > /etc/iptables/rules.v4",
		}},
		{title: "使用 firewalld (CentOS/RHEL 7+)", commands: []string{
			"firewall-cmd --zone=public --add-port=8080/tcp --permanent",
			"firewall-cmd --reload",
			"firewall-cmd --list-ports",
		}},
		{title: "使用 ufw (Ubuntu/Debian)", commands: []string{
			"ufw allow 8080/tcp",
			"ufw allow from 192.168.1.100 to any port 22",
			"ufw status",
		}},
		{title: "使用 vpstui", commands: []string{"vpstui port open 8080/tcp"}},
	},
	tip: "开放端口前请确认服务已正确配置，避免安全风险。",
}

var closePortGuide = guide{
	intro: "不同系统的端口关闭方法：",
	steps: []guideStep{
		{title: "使用 iptables", commands: []string{
			"iptables -D INPUT -p tcp --dport 8080 -j ACCEPT",
			"iptables -L -n --line-numbers",
			"iptables-save > /etc/iptables/rules.v4",
		}},
		{title: "使用 firewalld", commands: []string{
			"firewall-cmd --zone=public --remove-port=8080/tcp --permanent",
			"firewall-cmd --reload",
		}},
		{title: "使用 ufw", commands: []string{
			"ufw delete allow 8080/tcp",
			"ufw status numbered",
		}},
		{title: "停止监听服务", commands: []string{
			"lsof -i :8080",
			"systemctl stop service_name",
		}},
		{title: "使用 vpstui", commands: []string{"vpstui port close 8080/tcp"}},
	},
	tip: "关闭端口前请确认不会影响正常服务。",
}

// PortInfo shows the firewall state for one direction of change.
type PortInfo struct {
	action PortAction
}

func NewPortInfo(action PortAction) PortInfo {
	return PortInfo{action: action}
}

func (p PortInfo) Item() MenuItem {
	if p.action == PortClose {
		return MenuItem{
			Number:      "7",
			Key:         "close-port",
			Label:       "关闭端口",
			Description: "关闭防火墙端口",
			Aliases:     []string{"close"},
		}
	}
	return MenuItem{
		Number:      "6",
		Key:         "open-port",
		Label:       "开放端口",
		Description: "开放防火墙端口",
		Aliases:     []string{"open", "port"},
	}
}

func (p PortInfo) Invoke(ctx context.Context, env Env) report.Report {
	item := p.Item()
	rep := report.New(item.Label)
	g := openPortGuide
	if p.action == PortClose {
		g = closePortGuide
	}

	fw := DetectFirewall(env.Runner)
	var calls []call
	listing, hasListing := ruleListing(fw)
	specs := []hostcmd.Spec{command("ss", "-tuln")}
	if hasListing {
		specs = append(specs, listing)
	}
	if installed(env, "ss") || hasListing {
		calls = fanOut(ctx, env, specs)
		record(&rep, calls...)
	}

	fwSec := rep.Section("防火墙")
	if fw == FirewallNone {
		fwSec.Row("Backend", "未检测到 (ufw/firewalld/iptables)")
	} else {
		fwSec.Row("Backend", string(fw))
	}
	if len(calls) > 1 {
		if out := calls[1].stdout(); out != "" {
			rep.Section("防火墙规则").Text(out)
		}
	}
	if len(calls) > 0 {
		if out := calls[0].stdout(); out != "" {
			rep.Section("监听端口").Text(out)
		}
	}

	if fw == FirewallNone && !anyOK(calls) {
		g.simulate(&rep)
		return rep
	}
	g.addTo(&rep)
	return rep
}
