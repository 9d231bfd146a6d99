// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var DefaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const (
	cursorHide = "\033[?25l"
	cursorShow = "\033[?25h"
	eraseLine  = "\r\033[K"
)

// Spinner redraws one status line until stopped.
type Spinner struct {
	out        io.Writer
	frames     []string
	interval   time.Duration
	hideCursor bool
	color      Colorizer
	frameColor string

	mu   sync.Mutex
	text string
	stop chan struct{}
	done chan struct{}
}

type SpinnerOption func(*Spinner)

func WithFrames(frames []string) SpinnerOption {
	return func(s *Spinner) {
		if len(frames) > 0 {
			s.frames = frames
		}
	}
}

func WithInterval(d time.Duration) SpinnerOption {
	return func(s *Spinner) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithHideCursor(hide bool) SpinnerOption {
	return func(s *Spinner) {
		s.hideCursor = hide
	}
}

func WithColor(c Colorizer, code string) SpinnerOption {
	return func(s *Spinner) {
		s.color = c
		s.frameColor = code
	}
}

func NewSpinner(out io.Writer, opts ...SpinnerOption) *Spinner {
	s := &Spinner{
		out:      out,
		frames:   DefaultFrames,
		interval: 120 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Spinner) Start(text string) {
	s.mu.Lock()
	if s.stop != nil {
		s.text = text
		s.mu.Unlock()
		return
	}
	s.text = text
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if s.hideCursor {
		fmt.Fprint(s.out, cursorHide)
	}
	go s.loop(stop, done)
}

// Stop ends the animation. With clear the status line is erased, otherwise
// the last frame stays on screen followed by a newline.
func (s *Spinner) Stop(clear bool) {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	if clear {
		s.clearLine()
	} else {
		fmt.Fprintln(s.out)
	}
	if s.hideCursor {
		fmt.Fprint(s.out, cursorShow)
	}
}

func (s *Spinner) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		s.mu.Lock()
		text := s.text
		s.mu.Unlock()
		s.renderFrame(i, text)
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (s *Spinner) renderFrame(i int, text string) {
	frame := s.frames[i%len(s.frames)]
	fmt.Fprintf(s.out, "%s%s %s", eraseLine, s.color.Wrap(s.frameColor, frame), text)
}

func (s *Spinner) clearLine() {
	fmt.Fprint(s.out, eraseLine)
}
