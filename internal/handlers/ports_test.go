// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/report"
)

func TestParsePort(t *testing.T) {
	cases := []struct {
		in      string
		want    Port
		wantErr bool
	}{
		{in: "22", want: Port{Number: 22, Proto: "tcp"}},
		{in: "8080/udp", want: Port{Number: 8080, Proto: "udp"}},
		{in: " 443/TCP ", want: Port{Number: 443, Proto: "tcp"}},
		{in: "0", wantErr: true},
		{in: "65536", wantErr: true},
		{in: "80/icmp", wantErr: true},
		{in: "http", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParsePort(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidPort, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParsePortAction(t *testing.T) {
	action, err := ParsePortAction("OPEN")
	require.NoError(t, err)
	assert.Equal(t, PortOpen, action)
	_, err = ParsePortAction("toggle")
	assert.Error(t, err)
}

func TestPortCommands(t *testing.T) {
	port := Port{Number: 8080, Proto: "tcp"}
	cases := []struct {
		fw     Firewall
		action PortAction
		want   []string
	}{
		{FirewallUFW, PortOpen, []string{"ufw allow 8080/tcp"}},
		{FirewallUFW, PortClose, []string{"ufw delete allow 8080/tcp"}},
		{FirewallFirewalld, PortOpen, []string{"firewall-cmd --zone=public --add-port=8080/tcp --permanent", "firewall-cmd --reload"}},
		{FirewallFirewalld, PortClose, []string{"firewall-cmd --zone=public --remove-port=8080/tcp --permanent", "firewall-cmd --reload"}},
		{FirewallIPTables, PortOpen, []string{"iptables -A INPUT -p tcp --dport 8080 -j ACCEPT"}},
		{FirewallIPTables, PortClose, []string{"iptables -D INPUT -p tcp --dport 8080 -j ACCEPT"}},
	}
	for _, tc := range cases {
		specs, err := PortCommands(tc.fw, tc.action, port)
		require.NoError(t, err)
		var lines []string
		for _, spec := range specs {
			assert.True(t, spec.Sudo, specLine(spec))
			lines = append(lines, specLine(spec))
		}
		assert.Equal(t, tc.want, lines, "%s %s", tc.fw, tc.action)
	}

	_, err := PortCommands(FirewallNone, PortOpen, port)
	assert.ErrorIs(t, err, ErrNoFirewall)
}

func TestDetectFirewallOrder(t *testing.T) {
	runner := hostcmd.NewFake().Install("iptables", "firewall-cmd", "ufw")
	assert.Equal(t, FirewallUFW, DetectFirewall(runner))
	runner.Uninstall("ufw")
	assert.Equal(t, FirewallFirewalld, DetectFirewall(runner))
	runner.Uninstall("firewall-cmd")
	assert.Equal(t, FirewallIPTables, DetectFirewall(runner))
	runner.Uninstall("iptables")
	assert.Equal(t, FirewallNone, DetectFirewall(runner))
}

func TestApplyPort(t *testing.T) {
	runner := hostcmd.NewFake().
		On("firewall-cmd --zone=public --add-port=53/udp --permanent", "success\n").
		On("firewall-cmd --reload", "success\n")
	env := testEnv(runner, afero.NewMemMapFs())

	rep, err := ApplyPort(context.Background(), env, PortOpen, Port{Number: 53, Proto: "udp"})
	require.NoError(t, err)
	assert.Equal(t, report.StatusOK, rep.Status)
	assert.Equal(t, "firewalld", rowValue(t, section(t, rep, "防火墙"), "Backend"))
	require.Len(t, runner.Calls(), 2)
	for _, spec := range runner.Calls() {
		assert.True(t, spec.Sudo)
	}
}

func TestApplyPortStopsOnFailure(t *testing.T) {
	runner := hostcmd.NewFake().
		OnExit("firewall-cmd --zone=public --remove-port=22/tcp --permanent", 1, "Error: NOT_ENABLED")
	env := testEnv(runner, afero.NewMemMapFs())

	rep, err := ApplyPort(context.Background(), env, PortClose, Port{Number: 22, Proto: "tcp"})
	require.Error(t, err)
	var exitErr *hostcmd.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "Error: NOT_ENABLED", exitErr.Stderr)
	assert.Equal(t, report.StatusFail, rep.Status)
	assert.False(t, runner.Ran("firewall-cmd --reload"))
}

func TestApplyPortReportsSteps(t *testing.T) {
	runner := hostcmd.NewFake().
		On("firewall-cmd --zone=public --add-port=53/udp --permanent", "success\n").
		OnExit("firewall-cmd --reload", 1, "Error: RUNNING_BUT_FAILED")
	steps := &stepLog{}
	env := testEnv(runner, afero.NewMemMapFs())
	env.Steps = steps

	_, err := ApplyPort(context.Background(), env, PortOpen, Port{Number: 53, Proto: "udp"})
	require.Error(t, err)
	assert.Equal(t, []string{
		"step: sudo firewall-cmd --zone=public --add-port=53/udp --permanent",
		"done: success",
		"step: sudo firewall-cmd --reload",
		"fail: firewall-cmd exited with status 1",
	}, steps.events)
}

func TestApplyPortWithoutFirewall(t *testing.T) {
	_, err := ApplyPort(context.Background(), testEnv(hostcmd.NewFake(), afero.NewMemMapFs()), PortOpen, Port{Number: 80, Proto: "tcp"})
	assert.ErrorIs(t, err, ErrNoFirewall)
}

func TestPortInfoInvoke(t *testing.T) {
	runner := hostcmd.NewFake().
		On("ss -tuln", "Netid State  Recv-Q Send-Q Local Address:Port\ntcp   LISTEN 0      128    0.0.0.0:22\n").
		On("ufw status verbose", "Status: active\n\nTo Action From\n22/tcp ALLOW IN Anywhere\n")

	rep := NewPortInfo(PortOpen).Invoke(context.Background(), testEnv(runner, afero.NewMemMapFs()))
	assert.False(t, rep.Simulated)
	assert.Equal(t, "ufw", rowValue(t, section(t, rep, "防火墙"), "Backend"))
	assert.Contains(t, section(t, rep, "防火墙规则").Lines, "22/tcp ALLOW IN Anywhere")
	assert.Contains(t, section(t, rep, "监听端口").Lines, "tcp   LISTEN 0      128    0.0.0.0:22")
	assert.Contains(t, rep.Notes, openPortGuide.tip)
}

func TestPortInfoSimulated(t *testing.T) {
	rep := NewPortInfo(PortClose).Invoke(context.Background(), testEnv(hostcmd.NewFake(), afero.NewMemMapFs()))
	assert.True(t, rep.Simulated)
	assert.Equal(t, "关闭端口", rep.Title)
	assert.Contains(t, rep.Notes, closePortGuide.tip)
}
