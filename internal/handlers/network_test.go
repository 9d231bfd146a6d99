// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/probe"
)

const iputilsPing = `PING 1.1.1.1 (1.1.1.1) 56(84) bytes of data.
64 bytes from 1.1.1.1: icmp_seq=1 ttl=58 time=1.12 ms

--- 1.1.1.1 ping statistics ---
4 packets transmitted, 4 received, 0% packet loss, time 3004ms
rtt min/avg/max/mdev = 1.052/1.118/1.201/0.055 ms
`

const busyboxPing = `PING 8.8.8.8 (8.8.8.8): 56 data bytes

--- 8.8.8.8 ping statistics ---
4 packets transmitted, 3 packets received, 25% packet loss
round-trip min/avg/max = 9.1/10.2/12.3 ms
`

type fakeProber struct {
	mu     sync.Mutex
	rtt    map[string]time.Duration
	probed []string
}

func (f *fakeProber) Probe(ctx context.Context, server string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, server)
	rtt, ok := f.rtt[server]
	if !ok {
		return 0, errors.New("i/o timeout")
	}
	return rtt, nil
}

func TestParsePing(t *testing.T) {
	stats, ok := parsePing(iputilsPing)
	require.True(t, ok)
	assert.Equal(t, pingStats{Sent: 4, Received: 4, Loss: "0%", Min: "1.052", Avg: "1.118", Max: "1.201"}, stats)

	stats, ok = parsePing(busyboxPing)
	require.True(t, ok)
	assert.Equal(t, pingStats{Sent: 4, Received: 3, Loss: "25%", Min: "9.1", Avg: "10.2", Max: "12.3"}, stats)

	stats, ok = parsePing("4 packets transmitted, 4 received, 0% packet loss\nrtt min/avg/max/mdev =\n")
	require.True(t, ok)
	assert.Equal(t, pingStats{Sent: 4, Received: 4, Loss: "0%"}, stats)

	_, ok = parsePing("ping: unknown host")
	assert.False(t, ok)
}

func TestParseSpeedtest(t *testing.T) {
	rows := parseSpeedtest("Retrieving speedtest.net configuration...\nPing: 12.3 ms\nDownload: 93.41 Mbit/s\nUpload: 45.10 Mbit/s\n")
	require.Len(t, rows, 3)
	assert.Equal(t, "Download", rows[1].Label)
	assert.Equal(t, "93.41 Mbit/s", rows[1].Value)
}

func TestResolverAddr(t *testing.T) {
	assert.Equal(t, "1.1.1.1:53", resolverAddr("1.1.1.1"))
	assert.Equal(t, "[2606:4700::1111]:53", resolverAddr("2606:4700::1111"))
	assert.Equal(t, "127.0.0.1:5353", resolverAddr("127.0.0.1:5353"))
}

func TestNetworkInvoke(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, probe.PathResolvConf, "nameserver 1.1.1.1\nnameserver 10.0.0.2\n")
	runner := hostcmd.NewFake().
		On("ping -c 4 -W 2 1.1.1.1", iputilsPing).
		OnExit("ping -c 4 -W 2 8.8.8.8", 1, "")
	prober := &fakeProber{rtt: map[string]time.Duration{"1.1.1.1": 1500 * time.Microsecond}}

	rep := Network{DNS: prober}.Invoke(context.Background(), testEnv(runner, fs))
	assert.False(t, rep.Simulated)

	ping := section(t, rep, "延迟测试 (ping)")
	assert.Equal(t, "4/4 received, loss 0%, rtt 1.052/1.118/1.201 ms", rowValue(t, ping, "1.1.1.1"))
	assert.Equal(t, "失败", rowValue(t, ping, "8.8.8.8"))

	dns := section(t, rep, "DNS 解析延迟")
	assert.Equal(t, "1.5 ms", rowValue(t, dns, "1.1.1.1"))
	assert.Equal(t, "失败: i/o timeout", rowValue(t, dns, "10.0.0.2"))
	assert.ElementsMatch(t, []string{"1.1.1.1", "10.0.0.2"}, prober.probed)
	assert.Contains(t, rep.Notes, networkGuide.tip)
}

func TestNetworkInvokeSpeedtest(t *testing.T) {
	runner := hostcmd.NewFake().
		On("speedtest-cli --simple", "Ping: 20 ms\nDownload: 100.00 Mbit/s\nUpload: 50.00 Mbit/s\n")
	env := testEnv(runner, afero.NewMemMapFs())
	env.Config.PingTargets = nil

	rep := Network{DNS: &fakeProber{}}.Invoke(context.Background(), env)
	assert.False(t, rep.Simulated)
	speed := section(t, rep, "带宽测试 (speedtest-cli)")
	assert.Equal(t, "100.00 Mbit/s", rowValue(t, speed, "Download"))
	require.True(t, runner.Ran("speedtest-cli --simple"))
	assert.Equal(t, env.Config.BenchmarkTimeout, runner.Calls()[0].Timeout)
	assert.True(t, runner.Calls()[0].PTY)
}

func TestNetworkInvokeSimulated(t *testing.T) {
	rep := Network{DNS: &fakeProber{}}.Invoke(context.Background(), testEnv(hostcmd.NewFake(), afero.NewMemMapFs()))
	assert.True(t, rep.Simulated)
	section(t, rep, "操作指引")
}
