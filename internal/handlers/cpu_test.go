// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/probe"
)

const sysbenchOutput = `sysbench 1.0.20 (using system LuaJIT 2.1.0-beta3)

Running the test with following options:
Number of threads: 1

CPU speed:
    events per second:  1234.56

General statistics:
    total time:                          10.0004s
`

func TestParseSysbenchEPS(t *testing.T) {
	eps, ok := parseSysbenchEPS(sysbenchOutput)
	require.True(t, ok)
	assert.InDelta(t, 1234.56, eps, 0.001)

	_, ok = parseSysbenchEPS("FATAL: unknown test")
	assert.False(t, ok)
}

func TestCountPrimes(t *testing.T) {
	assert.Equal(t, 0, countPrimes(1))
	assert.Equal(t, 4, countPrimes(10))
	assert.Equal(t, 25, countPrimes(100))
	assert.Equal(t, 2262, countPrimes(benchPrimeMax))
}

func TestCPUInvokeSysbench(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, probe.PathCPUInfo, "processor\t: 0\nmodel name\t: Intel Xeon\ncpu MHz\t: 2400.000\n\nprocessor\t: 1\nmodel name\t: Intel Xeon\n")
	runner := hostcmd.NewFake().
		On("sysbench cpu --cpu-max-prime=20000 --threads=1 --time=10 run", sysbenchOutput).
		OnExit("sysbench cpu --cpu-max-prime=20000 --threads=2 --time=10 run", 1, "killed")

	rep := CPU{}.Invoke(context.Background(), testEnv(runner, fs))
	assert.False(t, rep.Simulated)

	info := section(t, rep, "CPU 信息")
	assert.Equal(t, "Intel Xeon", rowValue(t, info, "Model"))
	assert.Equal(t, "2", rowValue(t, info, "Cores"))
	assert.Equal(t, "2400 MHz", rowValue(t, info, "Frequency"))

	bench := section(t, rep, "性能测试 (sysbench)")
	assert.Equal(t, "1234.56 events/s", rowValue(t, bench, "单线程"))
	assert.Equal(t, "失败", rowValue(t, bench, "多线程 (2)"))
}

func TestCPUInvokeBuiltin(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, probe.PathCPUInfo, "processor\t: 0\nmodel name\t: Test CPU\n")

	rep := CPU{BenchDuration: 20 * time.Millisecond}.Invoke(context.Background(), testEnv(hostcmd.NewFake(), fs))
	assert.False(t, rep.Simulated)
	bench := section(t, rep, "性能测试 (内置)")
	assert.True(t, strings.HasSuffix(rowValue(t, bench, "单线程"), " primes/s"))
}

func TestVerifyPrimesCountsWholePasses(t *testing.T) {
	primes, elapsed, err := verifyPrimes(context.Background(), time.Millisecond, 2)
	require.NoError(t, err)
	assert.Positive(t, elapsed)
	assert.GreaterOrEqual(t, primes, int64(2*2262))
	assert.Zero(t, primes%2262)
}

func TestCPUInvokeSimulatedWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := CPU{BenchDuration: time.Second}.Invoke(ctx, testEnv(hostcmd.NewFake(), afero.NewMemMapFs()))
	assert.True(t, rep.Simulated)
}
