// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/report"
)

var diskGuide = guide{
	steps: []guideStep{
		{title: "安装 fio", commands: []string{"apt-get install fio  # Debian/Ubuntu", "yum install fio      # CentOS/RHEL"}},
		{title: "4K 随机读写", commands: []string{"fio --name=4k --rw=randrw --bs=4k --size=100M --numjobs=4 --runtime=10 --time_based --group_reporting --direct=1"}},
		{title: "顺序写入 (dd)", commands: []string{"dd if=/dev/zero of=/tmp/dd_test bs=1M count=50 oflag=sync", "rm -f /tmp/dd_test"}},
	},
	tip: "磁盘测试会产生大量 IO，请避开业务高峰期运行。",
}

// fioJob is one benchmark profile.
type fioJob struct {
	name    string
	title   string
	rw      string
	bs      string
	size    string
	numjobs string
	runtime string
}

var fioJobs = []fioJob{
	{name: "4k_mixed", title: "4K 随机读写测试", rw: "randrw", bs: "4k", size: "100M", numjobs: "4", runtime: "10"},
	{name: "64k_mixed", title: "64K 随机读写测试", rw: "randrw", bs: "64k", size: "200M", numjobs: "2", runtime: "10"},
	{name: "1m_seq", title: "1M 顺序读写测试", rw: "rw", bs: "1m", size: "500M", numjobs: "1", runtime: "15"},
}

func (j fioJob) spec(dir string) hostcmd.Spec {
	return command("fio",
		"--name="+j.name,
		"--directory="+dir,
		"--rw="+j.rw,
		"--rwmixread=50",
		"--bs="+j.bs,
		"--size="+j.size,
		"--numjobs="+j.numjobs,
		"--time_based",
		"--runtime="+j.runtime,
		"--group_reporting",
		"--ioengine=libaio",
		"--direct=1",
		"--unlink=1",
		"--output-format=json",
	)
}

// fioOutput is the part of `fio --output-format=json` that is reported.
type fioOutput struct {
	Jobs []struct {
		Read  fioStats `json:"read"`
		Write fioStats `json:"write"`
	} `json:"jobs"`
}

type fioStats struct {
	BW   float64 `json:"bw"`
	IOPS float64 `json:"iops"`
}

// fioResult is throughput in MB/s and IOPS per direction.
type fioResult struct {
	ReadMBps  float64
	ReadIOPS  float64
	WriteMBps float64
	WriteIOPS float64
}

// parseFIO sums the jobs of one fio JSON document. fio prints notices before
// the document on some versions, so parsing starts at the first brace.
func parseFIO(out string) (fioResult, error) {
	start := strings.Index(out, "{")
	if start < 0 {
		return fioResult{}, fmt.Errorf("fio: no json output")
	}
	var doc fioOutput
	if err := json.Unmarshal([]byte(out[start:]), &doc); err != nil {
		return fioResult{}, fmt.Errorf("fio: %w", err)
	}
	if len(doc.Jobs) == 0 {
		return fioResult{}, fmt.Errorf("fio: no jobs in output")
	}
	var res fioResult
	for _, job := range doc.Jobs {
		res.ReadMBps += job.Read.BW / 1024
		res.ReadIOPS += job.Read.IOPS
		res.WriteMBps += job.Write.BW / 1024
		res.WriteIOPS += job.Write.IOPS
	}
	return res, nil
}

// parseDDSpeed extracts the throughput of the summary line dd writes to
// stderr: "52428800 bytes (52 MB, 50 MiB) copied, 0.12 s, 437 MB/s".
func parseDDSpeed(stderr string) (string, bool) {
	lines := strings.Split(stderr, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "bytes") || !strings.Contains(line, "/s") {
			continue
		}
		idx := strings.LastIndex(line, ",")
		speed := strings.TrimSpace(line[idx+1:])
		if strings.HasSuffix(speed, "/s") {
			return speed, true
		}
	}
	return "", false
}

// Disk lists block devices and runs a throughput benchmark with the best
// available tool. BenchSize sets the built-in benchmark file size.
type Disk struct {
	BenchSize int64
}

func (Disk) Item() MenuItem {
	return MenuItem{
		Number:      "2",
		Key:         "disk",
		Label:       "硬盘测试",
		Description: "测试硬盘读写性能",
		Aliases:     []string{"io", "fio"},
	}
}

func (d Disk) Invoke(ctx context.Context, env Env) report.Report {
	rep := report.New("磁盘性能测试")

	info := fanOut(ctx, env, []hostcmd.Spec{
		command("lsblk", "-d", "-o", "NAME,SIZE,MODEL"),
		command("df", "-h", "--output=source,size,used,avail,pcent,target"),
	})
	record(&rep, info...)

	hasFIO := installed(env, "fio")
	hasDD := installed(env, "dd")
	tools := rep.Section("测试工具")
	tools.Row("FIO", installedLabel(hasFIO))
	tools.Row("DD", installedLabel(hasDD))

	dir := env.Config.DiskTestDir
	benchmarked := false
	if hasFIO && ctx.Err() == nil {
		benchmarked = diskFIO(ctx, env, &rep, dir)
	}
	if !benchmarked && hasDD && ctx.Err() == nil {
		benchmarked = diskDD(ctx, env, &rep, dir)
	}
	if !benchmarked && ctx.Err() == nil {
		size := d.BenchSize
		if size <= 0 {
			size = benchFileSize
		}
		benchmarked = diskBuiltin(ctx, env, &rep, dir, size)
	}

	if lsblk := info[0].stdout(); lsblk != "" {
		sec := rep.Section("磁盘设备")
		sec.Text(lsblk)
		if total, n := lsblkTotal(lsblk); n > 0 {
			sec.Row("总容量", fmt.Sprintf("%s (%d 块)", report.FormatBytes(total), n))
		}
	}
	if df := info[1].stdout(); df != "" {
		rep.Section("磁盘使用").Text(filterPseudoFS(df))
	}
	if !benchmarked && !anyOK(info) {
		diskGuide.simulate(&rep)
		return rep
	}
	if !benchmarked {
		rep.Degrade(report.StatusFail)
	}
	rep.Note(diskGuide.tip)
	return rep
}

func diskFIO(ctx context.Context, env Env, rep *report.Report, dir string) bool {
	if err := env.FS.MkdirAll(dir, 0o755); err != nil {
		rep.AddFileWrite(dir, err)
		return false
	}
	ok := false
	sec := rep.Section("测试结果 (fio)")
	for _, job := range fioJobs {
		spec := job.spec(dir)
		spec.Timeout = env.Config.BenchmarkTimeout
		c := run(ctx, env, rep, spec)
		if !c.ok() {
			sec.Row(job.title, "失败")
			continue
		}
		res, err := parseFIO(c.res.Stdout)
		if err != nil {
			env.Logger.Warn("fio output", "job", job.name, "err", err)
			sec.Row(job.title, "解析失败")
			continue
		}
		ok = true
		sec.Line(job.title + ":")
		sec.Line(fmt.Sprintf("  读取: %s (%s IOPS)", report.FormatSpeed(res.ReadMBps), report.FormatIOPS(res.ReadIOPS)))
		sec.Line(fmt.Sprintf("  写入: %s (%s IOPS)", report.FormatSpeed(res.WriteMBps), report.FormatIOPS(res.WriteIOPS)))
		sec.Line(fmt.Sprintf("  总计: %s (%s IOPS)", report.FormatSpeed(res.ReadMBps+res.WriteMBps), report.FormatIOPS(res.ReadIOPS+res.WriteIOPS)))
	}
	return ok
}

func diskDD(ctx context.Context, env Env, rep *report.Report, dir string) bool {
	if err := env.FS.MkdirAll(dir, 0o755); err != nil {
		rep.AddFileWrite(dir, err)
		return false
	}
	file := path.Join(dir, "vpstui-dd.test")
	defer func() { _ = env.FS.Remove(file) }()

	write := command("dd", "if=/dev/zero", "of="+file, "bs=1M", "count=50", "oflag=sync")
	write.Timeout = env.Config.BenchmarkTimeout
	wc := run(ctx, env, rep, write)
	writeSpeed, okWrite := parseDDSpeed(wc.res.Stderr)
	if !wc.ok() || !okWrite {
		return false
	}
	read := command("dd", "if="+file, "of=/dev/null", "bs=1M")
	read.Timeout = env.Config.BenchmarkTimeout
	rc := run(ctx, env, rep, read)
	readSpeed, okRead := parseDDSpeed(rc.res.Stderr)
	if !rc.ok() || !okRead {
		readSpeed = "失败"
	}
	rep.Section("测试结果 (dd)").
		Row("写入", writeSpeed).
		Row("读取", readSpeed)
	return true
}

func diskBuiltin(ctx context.Context, env Env, rep *report.Report, dir string, size int64) bool {
	res, err := benchDisk(ctx, env.FS, dir, size)
	if err != nil {
		env.Logger.Warn("builtin disk benchmark", "err", err)
		rep.AddFileWrite(dir, err)
		return false
	}
	rep.Section("测试结果 (内置)").
		Row("写入", report.FormatSpeed(res.WriteMBps)).
		Row("读取", report.FormatSpeed(res.ReadMBps)).
		Line(fmt.Sprintf("顺序读写 %s 测试文件, 1 MiB 块", report.FormatBytes(uint64(size))))
	return true
}

func filterPseudoFS(df string) string {
	var kept []string
	for _, line := range strings.Split(df, "\n") {
		source := strings.Fields(line)
		if len(source) > 0 && (source[0] == "tmpfs" || source[0] == "devtmpfs" || source[0] == "udev" || source[0] == "overlay") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func installedLabel(ok bool) string {
	if ok {
		return "已安装"
	}
	return "未安装"
}

// lsblkTotal sums the SIZE column of `lsblk -d -o NAME,SIZE,...` output and
// returns the total with the number of devices counted.
func lsblkTotal(out string) (uint64, int) {
	var total uint64
	n := 0
	for i, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if i == 0 || len(fields) < 2 {
			continue
		}
		size, err := report.ParseSize(fields[1])
		if err != nil {
			continue
		}
		total += size
		n++
	}
	return total, n
}
