// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/probe"
	"github.com/shayne/vpstui/internal/report"
)

const (
	ipinfoV4  = "https://ipinfo.io/json"
	ipinfoV6  = "https://ipv6.ipinfo.io/json"
	ipinfoOrg = "https://ipinfo.io/org"
)

var sysinfoGuide = guide{
	steps: []guideStep{
		{title: "基础信息", commands: []string{"uname -a", "cat /etc/os-release", "uptime"}},
		{title: "CPU 与内存", commands: []string{"lscpu", "free -h"}},
		{title: "磁盘与网络", commands: []string{"df -hT", "ip addr", "cat /etc/resolv.conf"}},
	},
	tip: "系统信息依赖 /proc 与常见系统工具，请在 Linux VPS 上运行。",
}

// SysInfo reports host identity, resources and network facts.
type SysInfo struct{}

func (SysInfo) Item() MenuItem {
	return MenuItem{
		Number:      "1",
		Key:         "sysinfo",
		Label:       "系统信息",
		Description: "查看系统详细信息",
		Aliases:     []string{"system", "info"},
	}
}

// probeSet names the commands of one fan-out.
type probeSet struct {
	specs []hostcmd.Spec
	index map[string]int
}

func (p *probeSet) add(key string, spec hostcmd.Spec) {
	if p.index == nil {
		p.index = map[string]int{}
	}
	p.index[key] = len(p.specs)
	p.specs = append(p.specs, spec)
}

func (p *probeSet) get(calls []call, key string) (call, bool) {
	i, ok := p.index[key]
	if !ok {
		return call{}, false
	}
	return calls[i], true
}

func (p *probeSet) stdout(calls []call, key string) string {
	c, ok := p.get(calls, key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(c.stdout())
}

func curlSpec(url string, family string, maxTime string) hostcmd.Spec {
	args := []string{"-s", "--max-time", maxTime, "--connect-timeout", "5"}
	if family != "" {
		args = append(args, family)
	}
	return command("curl", append(args, url)...)
}

func (SysInfo) Invoke(ctx context.Context, env Env) report.Report {
	rep := report.New("系统信息")

	var probes probeSet
	probes.add("arch", command("uname", "-m"))
	probes.add("df", command("df", "-P", "-T", "-k"))
	probes.add("route", command("ip", "route", "show", "default"))
	for _, optional := range []struct {
		key  string
		spec hostcmd.Spec
	}{
		{"lsb", command("lsb_release", "-d", "-s")},
		{"virt", command("systemd-detect-virt")},
		{"dmi", command("dmidecode", "-s", "system-product-name")},
		{"lscpu", command("lscpu")},
	} {
		if installed(env, optional.spec.Name) {
			probes.add(optional.key, optional.spec)
		}
	}
	lookup := env.Config.NetworkLookup && installed(env, "curl")
	if lookup {
		probes.add("ipv4", curlSpec(ipinfoV4, "-4", "10"))
		probes.add("ipv6", curlSpec(ipinfoV6, "-6", "10"))
	}
	calls := fanOut(ctx, env, probes.specs)
	record(&rep, calls...)

	hostname, _ := probe.Hostname(env.FS)
	kernel, _ := probe.Kernel(env.FS)
	uptime, uptimeErr := probe.Uptime(env.FS)
	load, _ := probe.LoadAvg(env.FS)
	mem, memErr := probe.MemInfo(env.FS)
	cpu, cpuErr := probe.CPUInfo(env.FS)
	if memErr != nil {
		rep.AddFileSource(probe.PathMemInfo, memErr)
	}
	if cpuErr != nil {
		rep.AddFileSource(probe.PathCPUInfo, cpuErr)
	}
	if memErr != nil && cpuErr != nil && !anyOK(calls) {
		sysinfoGuide.simulate(&rep)
		return rep
	}

	distro := probes.stdout(calls, "lsb")
	distro = strings.Trim(distro, `"`)
	if distro == "" {
		distro, _ = probe.Distro(env.FS)
	}

	basic := rep.Section("基础信息")
	basic.Row("Hostname", hostname)
	if uptimeErr == nil {
		basic.Row("Uptime", report.FormatUptime(uptime))
	} else {
		basic.Row("Uptime", "")
	}
	if cpu.Model != "" || cpu.Cores > 0 {
		basic.Row("CPU", fmt.Sprintf("%s (%d cores)", orUnknown(cpu.Model), cpu.Cores))
	} else {
		basic.Row("CPU", "")
	}
	basic.Row("Arch", probes.stdout(calls, "arch"))
	basic.Row("Frequency", cpuFrequency(cpu, probes.stdout(calls, "lscpu")))
	basic.Row("Load", load)
	if memErr == nil {
		basic.Row("Memory", usage(mem.Used(), mem.Total))
		if mem.SwapTotal > 0 {
			basic.Row("Swap", usage(mem.SwapUsed(), mem.SwapTotal))
		} else {
			basic.Row("Swap", "none")
		}
	} else {
		basic.Row("Memory", "")
	}
	disks := parseDF(probes.stdout(calls, "df"))
	if len(disks) > 0 {
		var used, total uint64
		for _, d := range disks {
			used += d.Used
			total += d.Total
		}
		basic.Row("Disk", usage(used, total))
	} else {
		basic.Row("Disk", "")
	}
	basic.Row("Distro", distro)
	basic.Row("Kernel", kernel)
	basic.Row("VM Type", detectVirt(probes.stdout(calls, "virt"), probes.stdout(calls, "dmi"), probes.stdout(calls, "lscpu"), cpu))

	if len(disks) > 0 {
		sec := rep.Section("磁盘分区")
		for _, d := range disks {
			sec.Line(fmt.Sprintf("%-24s %-6s %-16s %s", d.Source, d.FSType, d.Mount, usage(d.Used, d.Total)))
		}
	}

	net := rep.Section("网络信息")
	ifaceName := defaultInterface(probes.stdout(calls, "route"))
	ifaces, _ := probe.NetDev(env.FS)
	if iface, ok := probe.SelectInterface(ifaces, ifaceName); ok {
		net.Row("Interface", iface.Name)
		net.Row("RX", fmt.Sprintf("%s (%d packets)", report.FormatBytes(iface.RxBytes), iface.RxPackets))
		net.Row("TX", fmt.Sprintf("%s (%d packets)", report.FormatBytes(iface.TxBytes), iface.TxPackets))
	} else {
		net.Row("Interface", ifaceName)
	}
	cc, _ := probe.CongestionControl(env.FS)
	net.Row("TCP CC", cc)
	servers, _ := probe.Nameservers(env.FS)
	net.Row("DNS", strings.Join(servers, ", "))
	net.Row("Time", env.Now().UTC().Format("2006-01-02 15:04:05 UTC"))

	public := rep.Section("公网信息")
	switch {
	case !env.Config.NetworkLookup:
		public.Line("已关闭 (network_lookup = false)")
	case !lookup:
		public.Line("未安装 curl，跳过公网信息查询")
	default:
		addPublicInfo(ctx, env, &rep, public, probes, calls)
	}
	return rep
}

type ipInfo struct {
	IP       string `json:"ip"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Org      string `json:"org"`
	Hostname string `json:"hostname"`
}

func parseIPInfo(raw string) (ipInfo, bool) {
	var info ipInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil || info.IP == "" {
		return ipInfo{}, false
	}
	return info, true
}

func addPublicInfo(ctx context.Context, env Env, rep *report.Report, sec *report.Section, probes probeSet, calls []call) {
	v4, ok4 := parseIPInfo(probes.stdout(calls, "ipv4"))
	v6, ok6 := parseIPInfo(probes.stdout(calls, "ipv6"))
	if !ok4 && !ok6 {
		sec.Line("无法获取公网信息")
		return
	}
	if ok4 {
		sec.Row("IPv4", v4.IP)
	}
	if ok6 {
		sec.Row("IPv6", v6.IP)
	}
	primary := v4
	if !ok4 {
		primary = v6
	}
	if primary.Org != "" {
		sec.Row("ISP", primary.Org)
	} else if asn := strings.TrimSpace(run(ctx, env, rep, curlSpec(ipinfoOrg, "", "5")).stdout()); asn != "" {
		sec.Row("ASN", asn)
	}
	if primary.Hostname != "" {
		sec.Row("Host", primary.Hostname)
	}
	if primary.City != "" && primary.Region != "" {
		sec.Row("Location", primary.City+", "+primary.Region)
	}
	if primary.Country != "" {
		sec.Row("Country", primary.Country)
	}
}

// dfEntry is one filesystem from `df -P -T -k`.
type dfEntry struct {
	Source string
	FSType string
	Total  uint64
	Used   uint64
	Avail  uint64
	Mount  string
}

var skippedFSTypes = map[string]bool{
	"tmpfs":    true,
	"devtmpfs": true,
	"squashfs": true,
	"overlay":  true,
}

func parseDF(out string) []dfEntry {
	var entries []dfEntry
	seen := map[string]bool{}
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		fields := strings.Fields(line)
		if i == 0 || len(fields) < 7 {
			continue
		}
		entry := dfEntry{Source: fields[0], FSType: fields[1], Mount: strings.Join(fields[6:], " ")}
		if skippedFSTypes[entry.FSType] || strings.HasPrefix(entry.Source, "tmpfs") || skippedMount(entry.Mount) {
			continue
		}
		if seen[entry.Source] {
			continue
		}
		seen[entry.Source] = true
		entry.Total = kbytes(fields[2])
		entry.Used = kbytes(fields[3])
		entry.Avail = kbytes(fields[4])
		entries = append(entries, entry)
	}
	return entries
}

func skippedMount(mount string) bool {
	for _, prefix := range []string{"/proc", "/sys", "/dev", "/run"} {
		if mount == prefix || strings.HasPrefix(mount, prefix+"/") {
			return true
		}
	}
	return false
}

func kbytes(s string) uint64 {
	n, _ := strconv.ParseUint(s, 10, 64)
	return n * 1024
}

// defaultInterface returns the device of the default route.
func defaultInterface(route string) string {
	for _, line := range strings.Split(route, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] != "default" {
			continue
		}
		for i := 0; i+1 < len(fields); i++ {
			if fields[i] == "dev" {
				return fields[i+1]
			}
		}
	}
	return ""
}

// detectVirt follows systemd-detect-virt, then DMI product name, then the
// hypervisor markers of lscpu and /proc/cpuinfo.
func detectVirt(virt, dmi, lscpu string, cpu probe.CPU) string {
	if v := strings.TrimSpace(virt); v != "" && v != "none" {
		return v
	}
	product := strings.ToLower(dmi)
	for _, vm := range []struct{ marker, name string }{
		{"kvm", "KVM"},
		{"vmware", "VMware"},
		{"virtualbox", "VirtualBox"},
		{"xen", "Xen"},
	} {
		if strings.Contains(product, vm.marker) {
			return vm.name
		}
	}
	if strings.Contains(strings.ToLower(lscpu), "hypervisor") || cpu.Hypervisor {
		return "Virtual Machine"
	}
	return "Physical"
}

func cpuFrequency(cpu probe.CPU, lscpu string) string {
	if cpu.MHz > 0 {
		return fmt.Sprintf("%.0f MHz", cpu.MHz)
	}
	for _, line := range strings.Split(lscpu, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key != "CPU max MHz" && key != "CPU MHz" {
			continue
		}
		if mhz, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return fmt.Sprintf("%.0f MHz", mhz)
		}
	}
	return ""
}

const usageBarWidth = 20

func usage(used, total uint64) string {
	pct := report.Percent(used, total)
	return fmt.Sprintf("%s / %s (%.1f%%) %s", report.FormatBytesGiB(used), report.FormatBytesGiB(total), pct, report.ProgressBar(pct, usageBarWidth))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
