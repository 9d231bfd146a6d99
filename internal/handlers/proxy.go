// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"strings"

	"github.com/shayne/vpstui/internal/report"
)

// proxyTool is one proxy platform the menu knows how to inspect.
type proxyTool struct {
	name    string
	binary  string
	unit    string
	config  string
	version []string
	guide   guide
}

var proxyTools = []proxyTool{
	{
		name:    "Xray",
		binary:  "xray",
		unit:    "xray",
		config:  "/usr/local/etc/xray/config.json",
		version: []string{"version"},
		guide: guide{
			heading: "Xray 安装指引",
			intro:   "Xray 是 V2Ray 的超集，具有更好的性能",
			steps: []guideStep{
				{title: "官方安装脚本", commands: []string{
					`bash -c "$(curl -L https://github.com/XTLS/Xray-install/raw/main/install-release.sh)" @ install`,
					`bash -c "$(curl -L https://github.com/XTLS/Xray-install/raw/main/install-release.sh)" @ remove`,
				}},
				{title: "配置文件管理", commands: []string{
					"nano /usr/local/etc/xray/config.json",
					"xray run -test -config /usr/local/etc/xray/config.json",
				}},
				{title: "服务管理命令", commands: []string{
					"systemctl enable --now xray",
					"systemctl status xray",
					"journalctl -u xray -f",
				}},
				{title: "相关工具", commands: []string{"xray uuid"}},
			},
		},
	},
	{
		name:    "sing-box",
		binary:  "sing-box",
		unit:    "sing-box",
		config:  "/etc/sing-box/config.json",
		version: []string{"version"},
		guide: guide{
			heading: "sing-box 安装指引",
			intro:   "sing-box 是一个通用的代理平台",
			steps: []guideStep{
				{title: "官方安装脚本", commands: []string{"bash <(curl -fsSL https://sing-box.app/install.sh)"}},
				{title: "配置文件位置", commands: []string{
					"mkdir -p /etc/sing-box/",
					"sing-box check -c /etc/sing-box/config.json",
				}},
				{title: "系统服务管理", commands: []string{
					"systemctl enable --now sing-box",
					"systemctl status sing-box",
					"journalctl -u sing-box -f",
				}},
			},
		},
	},
}

const proxyTip = "请根据实际需求配置，注意防火墙规则。"

// Proxy reports the state of locally installed proxy platforms.
type Proxy struct{}

func (Proxy) Item() MenuItem {
	return MenuItem{
		Number:      "5",
		Key:         "proxy",
		Label:       "科学上网",
		Description: "科学上网",
		Aliases:     []string{"xray", "sing-box", "singbox"},
	}
}

// firstLine returns the first non-empty line of out.
func firstLine(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// unitState maps `systemctl is-active` output to a display value. The command
// exits non-zero for every state except active, so stdout is read regardless.
func unitState(c call) string {
	if c.err != nil {
		return ""
	}
	state := firstLine(c.res.Stdout)
	switch state {
	case "active":
		return "运行中 (active)"
	case "":
		return ""
	default:
		return "未运行 (" + state + ")"
	}
}

func (Proxy) Invoke(ctx context.Context, env Env) report.Report {
	rep := report.New("科学上网")
	systemd := installed(env, "systemctl")

	found := 0
	for _, tool := range proxyTools {
		sec := rep.Section(tool.name)
		if !installed(env, tool.binary) {
			sec.Row("状态", "未安装")
			continue
		}
		found++
		sec.Row("状态", "已安装")
		version := run(ctx, env, &rep, command(tool.binary, tool.version...))
		sec.Row("版本", firstLine(version.stdout()))
		if systemd {
			active := run(ctx, env, &rep, command("systemctl", "is-active", tool.unit))
			sec.Row("服务", unitState(active))
		}
		sec.Row("配置", tool.config)
	}

	if found == 0 && !systemd {
		rep.MarkSimulated()
	}
	for _, tool := range proxyTools {
		if installed(env, tool.binary) {
			continue
		}
		tool.guide.addTo(&rep)
	}
	rep.Note(proxyTip)
	return rep
}
