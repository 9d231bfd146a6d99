// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	benchBlockSize = 1 << 20
	benchFileSize  = 64 << 20
	benchPrimeMax  = 20000
)

// diskResult is a throughput pair in MB/s.
type diskResult struct {
	WriteMBps float64
	ReadMBps  float64
}

// benchDisk writes size bytes to a file under dir with a final sync, reads
// them back and removes the file.
func benchDisk(ctx context.Context, fs afero.Fs, dir string, size int64) (diskResult, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return diskResult{}, fmt.Errorf("create %s: %w", dir, err)
	}
	name := path.Join(dir, "vpstui-bench.test")
	defer func() { _ = fs.Remove(name) }()

	block := make([]byte, benchBlockSize)
	for i := range block {
		block[i] = byte(i*31 + 7)
	}

	start := time.Now()
	f, err := fs.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return diskResult{}, err
	}
	var written int64
	for written < size {
		if err := ctx.Err(); err != nil {
			_ = f.Close()
			return diskResult{}, err
		}
		n, err := f.Write(block)
		if err != nil {
			_ = f.Close()
			return diskResult{}, fmt.Errorf("write %s: %w", name, err)
		}
		written += int64(n)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return diskResult{}, fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return diskResult{}, err
	}
	writeElapsed := time.Since(start)

	start = time.Now()
	r, err := fs.Open(name)
	if err != nil {
		return diskResult{}, err
	}
	read, err := io.CopyBuffer(io.Discard, &ctxReader{ctx: ctx, r: r}, block)
	_ = r.Close()
	if err != nil {
		return diskResult{}, fmt.Errorf("read %s: %w", name, err)
	}
	readElapsed := time.Since(start)

	return diskResult{
		WriteMBps: mbps(written, writeElapsed),
		ReadMBps:  mbps(read, readElapsed),
	}, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func mbps(n int64, d time.Duration) float64 {
	if d <= 0 {
		d = time.Microsecond
	}
	return float64(n) / float64(1<<20) / d.Seconds()
}

// cpuResult holds primes verified per second.
type cpuResult struct {
	Single  float64
	Multi   float64
	Threads int
}

// benchCPU verifies every prime up to benchPrimeMax by trial division for d,
// once on one goroutine and once per CPU, and scores the primes found.
func benchCPU(ctx context.Context, d time.Duration) (cpuResult, error) {
	threads := runtime.NumCPU()
	single, err := primesPerSecond(ctx, d, 1)
	if err != nil {
		return cpuResult{}, err
	}
	multi, err := primesPerSecond(ctx, d, threads)
	if err != nil {
		return cpuResult{}, err
	}
	return cpuResult{Single: single, Multi: multi, Threads: threads}, nil
}

func primesPerSecond(ctx context.Context, d time.Duration, workers int) (float64, error) {
	primes, elapsed, err := verifyPrimes(ctx, d, workers)
	if err != nil || elapsed <= 0 {
		return 0, err
	}
	return float64(primes) / elapsed.Seconds(), nil
}

// verifyPrimes runs full passes up to benchPrimeMax on each worker until d
// has passed and returns the primes found. Every worker finishes at least
// one pass.
func verifyPrimes(ctx context.Context, d time.Duration, workers int) (int64, time.Duration, error) {
	var primes atomic.Int64
	start := time.Now()
	deadline := start.Add(d)
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				primes.Add(int64(countPrimes(benchPrimeMax)))
				if !time.Now().Before(deadline) {
					return nil
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return primes.Load(), time.Since(start), nil
}

// countPrimes returns the number of primes <= limit.
func countPrimes(limit int) int {
	count := 0
	for n := 2; n <= limit; n++ {
		prime := true
		for div := 2; div*div <= n; div++ {
			if n%div == 0 {
				prime = false
				break
			}
		}
		if prime {
			count++
		}
	}
	return count
}
