// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/afero"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/probe"
	"github.com/shayne/vpstui/internal/report"
)

// SysctlConfPath is where ApplyTCP writes the tuning profile.
const SysctlConfPath = "/etc/sysctl.d/99-vpstui.conf"

// Setting is one sysctl key and value.
type Setting struct {
	Key   string
	Value string
}

// TCPProfile is the recommended tuning: BBR with fq plus larger buffers and
// backlogs.
var TCPProfile = []Setting{
	{"net.core.default_qdisc", "fq"},
	{"net.ipv4.tcp_congestion_control", "bbr"},
	{"net.core.rmem_default", "262144"},
	{"net.core.rmem_max", "134217728"},
	{"net.core.wmem_default", "262144"},
	{"net.core.wmem_max", "134217728"},
	{"net.ipv4.tcp_rmem", "4096 87380 134217728"},
	{"net.ipv4.tcp_wmem", "4096 65536 134217728"},
	{"net.core.somaxconn", "32768"},
	{"net.ipv4.tcp_max_syn_backlog", "8192"},
	{"net.ipv4.tcp_keepalive_time", "60"},
	{"net.ipv4.tcp_keepalive_intvl", "10"},
	{"net.ipv4.tcp_keepalive_probes", "6"},
	{"net.ipv4.tcp_fastopen", "3"},
	{"net.ipv4.tcp_tw_reuse", "1"},
	{"net.ipv4.tcp_fin_timeout", "30"},
	{"net.ipv4.ip_local_port_range", "10000 65535"},
}

const unsetValue = "(unset)"

// CurrentSettings reads the live value of every profile key. Keys that cannot
// be read get "(unset)"; the returned count is how many were read.
func CurrentSettings(fsys afero.Fs, profile []Setting) ([]Setting, int, error) {
	current := make([]Setting, 0, len(profile))
	read := 0
	var firstErr error
	for _, s := range profile {
		value, err := probe.Sysctl(fsys, s.Key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			value = unsetValue
		} else {
			read++
		}
		current = append(current, Setting{Key: s.Key, Value: value})
	}
	return current, read, firstErr
}

// ProfileText renders settings in sysctl.conf syntax.
func ProfileText(settings []Setting) string {
	var b strings.Builder
	for _, s := range settings {
		b.WriteString(s.Key)
		b.WriteString(" = ")
		b.WriteString(s.Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// ProfileFile is the content written to SysctlConfPath.
func ProfileFile(settings []Setting) []byte {
	return []byte("# Written by vpstui tcp apply.\n" + ProfileText(settings))
}

// LineDiff renders a line-based diff of a and b with -, + and space prefixes
// under ---/+++ headers. Identical input yields "".
func LineDiff(fromName, toName, a, b string) string {
	if a == b {
		return ""
	}
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n+++ %s\n", fromName, toName)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(strings.TrimSuffix(line, "\n"))
			out.WriteByte('\n')
		}
	}
	return out.String()
}

// pending counts the keys whose live value differs from the profile.
func pending(current, profile []Setting) int {
	n := 0
	for i := range profile {
		if i >= len(current) || current[i].Value != profile[i].Value {
			n++
		}
	}
	return n
}

var tcpGuide = guide{
	intro: "优化 TCP 参数可以显著提升网络性能",
	steps: []guideStep{
		{title: "查看当前 TCP 设置", commands: []string{
			"sysctl net.ipv4.tcp_congestion_control",
			"sysctl net.ipv4.tcp_available_congestion_control",
		}},
		{title: "启用 BBR 拥塞控制 (内核 4.9+)", commands: []string{
			"modprobe tcp_bbr",
			"echo \"tcp_bbr\" >> /etc/modules-load.d/modules.conf",
		}},
		{title: "应用推荐配置", commands: []string{
			"vpstui tcp apply",
			"sysctl --system",
		}},
		{title: "验证优化效果", commands: []string{
			"lsmod | grep bbr",
			"ss -s",
		}},
	},
	tip: "修改前建议备份原始配置，某些参数可能需要重启生效。",
}

// TCP compares the live network sysctl values with TCPProfile.
type TCP struct{}

func (TCP) Item() MenuItem {
	return MenuItem{
		Number:      "0",
		Key:         "tcp",
		Label:       "tcp调优",
		Description: "优化TCP网络参数",
		Aliases:     []string{"bbr", "sysctl"},
	}
}

func (TCP) Invoke(ctx context.Context, env Env) report.Report {
	rep := report.New("TCP 调优")
	current, read, err := CurrentSettings(env.FS, TCPProfile)
	if read == 0 {
		rep.AddFileSource(probe.SysctlPath(TCPProfile[0].Key), err)
		tcpGuide.simulate(&rep)
		rep.Section("推荐配置 ("+SysctlConfPath+")").Text(ProfileText(TCPProfile))
		return rep
	}

	sec := rep.Section("当前参数")
	for _, s := range current {
		sec.Row(s.Key, s.Value)
	}

	if available, err := probe.Sysctl(env.FS, "net.ipv4.tcp_available_congestion_control"); err == nil &&
		!strings.Contains(" "+available+" ", " bbr ") {
		rep.Note("当前内核未加载 BBR，请先执行 modprobe tcp_bbr (需要内核 4.9+)。")
	}

	n := pending(current, TCPProfile)
	if n == 0 {
		rep.Note("当前参数已是推荐配置。")
		return rep
	}
	diff := LineDiff("current", "recommended", ProfileText(current), ProfileText(TCPProfile))
	rep.Section(fmt.Sprintf("推荐变更 (%d 项)", n)).Text(diff)
	tcpGuide.addTo(&rep)
	return rep
}

// ApplyTCP writes TCPProfile to SysctlConfPath and reloads sysctl. The file
// is written through env.FS; when that is not permitted it is piped through
// sudo tee.
func ApplyTCP(ctx context.Context, env Env) (report.Report, error) {
	env = env.withDefaults()
	rep := report.New("TCP 调优: 应用配置")
	content := ProfileFile(TCPProfile)

	sec := rep.Section("变更")
	sec.Row("文件", SysctlConfPath)
	env.Steps.Step("write " + SysctlConfPath)
	err := writeProfile(env.FS, content)
	switch {
	case err == nil:
		rep.AddFileWrite(SysctlConfPath, nil)
		env.Steps.Done(fmt.Sprintf("%d bytes", len(content)))
	case errors.Is(err, fs.ErrPermission):
		spec := command("tee", SysctlConfPath)
		spec.Sudo = true
		spec.Stdin = content
		if c := run(ctx, env, &rep, spec); !c.ok() {
			err := callError(c)
			env.Steps.Fail(err.Error())
			rep.Degrade(report.StatusFail)
			return rep, fmt.Errorf("write %s: %w", SysctlConfPath, err)
		}
		env.Steps.Done("sudo tee")
	default:
		env.Steps.Fail(err.Error())
		rep.AddFileWrite(SysctlConfPath, err)
		rep.Degrade(report.StatusFail)
		return rep, fmt.Errorf("write %s: %w", SysctlConfPath, err)
	}

	reload := command("sysctl", "--system")
	reload.Sudo = true
	env.Steps.Step(hostcmd.CommandLine(reload))
	c := run(ctx, env, &rep, reload)
	if !c.ok() {
		err := callError(c)
		env.Steps.Fail(err.Error())
		rep.Degrade(report.StatusFail)
		return rep, fmt.Errorf("reload sysctl: %w", err)
	}
	env.Steps.Done("")
	sec.Row("sysctl", "已重新加载")
	env.Logger.Info("tcp profile applied", "path", SysctlConfPath, "keys", len(TCPProfile))
	return rep, nil
}

func writeProfile(fsys afero.Fs, content []byte) error {
	if err := fsys.MkdirAll(path.Dir(SysctlConfPath), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, SysctlConfPath, content, 0o644)
}

// callError turns a failed call into an error.
func callError(c call) error {
	if c.err != nil {
		return c.err
	}
	return &hostcmd.ExitError{Name: c.spec.Name, Code: c.res.ExitCode, Stderr: strings.TrimSpace(c.res.Stderr)}
}
