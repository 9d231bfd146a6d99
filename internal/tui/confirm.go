// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrNotConfirmed is returned when the user declines a change.
var ErrNotConfirmed = errors.New("not confirmed")

// Confirm asks a yes/no question. On a terminal it uses a huh form; on other
// streams it reads a y/N line and re-asks on unrecognized input. An empty
// answer or EOF means no.
func Confirm(in io.Reader, out io.Writer, title, description string) (bool, error) {
	if useDialogPrompts(in, out) {
		return confirmForm(in, out, title, description)
	}
	reader := bufio.NewReader(in)
	printPromptHeader(out, title, description)
	for {
		fmt.Fprint(out, "确认 [y/N]: ")
		line, err := readLine(reader)
		if err != nil {
			return false, err
		}
		value, ok := parseYesNo(line)
		if !ok {
			fmt.Fprintln(out, "请输入 y 或 n。")
			continue
		}
		return value, nil
	}
}

func confirmForm(in io.Reader, out io.Writer, title, description string) (bool, error) {
	confirmed := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("确认").
				Negative("取消").
				Value(&confirmed),
		),
	)
	form.WithInput(in).WithOutput(out).WithTheme(promptTheme(out))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return confirmed, nil
}

func promptTheme(out io.Writer) *huh.Theme {
	if !NewColorizer(isTerminal(out)).Enabled {
		return huh.ThemeBase()
	}
	return huh.ThemeCharm()
}

func useDialogPrompts(in io.Reader, out io.Writer) bool {
	inFile, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(inFile.Fd())) {
		return false
	}
	return isTerminal(out)
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printPromptHeader(out io.Writer, title, description string) {
	if strings.TrimSpace(title) != "" {
		fmt.Fprintln(out, title)
	}
	if strings.TrimSpace(description) != "" {
		fmt.Fprintln(out, description)
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if errors.Is(err, io.EOF) {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
