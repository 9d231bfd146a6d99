// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/shayne/vpstui/internal/clipboard"
	"github.com/shayne/vpstui/internal/handlers"
	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/report"
	"github.com/shayne/vpstui/internal/tui"
)

const (
	menuWidth    = 24
	paneChrome   = 2
	minPaneWidth = 20
)

type focusArea int

const (
	focusMenu focusArea = iota
	focusContent
)

// itemResult is the cached outcome of one menu item.
type itemResult struct {
	rep     report.Report
	text    string
	err     error
	elapsed time.Duration
}

type shellModel struct {
	ctx      context.Context
	reg      *handlers.Registry
	runner   hostcmd.Runner
	items    []handlers.MenuItem
	host     string
	selected int
	showMenu bool
	focus    focusArea
	content  viewport.Model
	spin     spinner.Model
	width    int
	height   int
	results  map[string]itemResult
	running  string
	seq      int
	cancel   context.CancelFunc
	status   string
}

type invokeResultMsg struct {
	seq     int
	key     string
	rep     report.Report
	err     error
	elapsed time.Duration
}

type copyResultMsg struct {
	method string
	err    error
}

func newShellModel(ctx context.Context, reg *handlers.Registry, runner hostcmd.Runner, host string) shellModel {
	spin := spinner.New()
	spin.Spinner = spinner.Spinner{Frames: tui.DefaultFrames, FPS: 120 * time.Millisecond}
	m := shellModel{
		ctx:      ctx,
		reg:      reg,
		runner:   runner,
		items:    reg.Items(),
		host:     host,
		showMenu: true,
		focus:    focusMenu,
		content:  viewport.New(0, 0),
		spin:     spin,
		results:  map[string]itemResult{},
	}
	m.refreshContent()
	return m
}

func (m shellModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case invokeResultMsg:
		if msg.seq != m.seq {
			// A newer invocation replaced this one.
			return m, nil
		}
		m.running = ""
		m.cancel = nil
		if errors.Is(msg.err, context.Canceled) {
			m.status = "已取消"
			m.refreshContent()
			return m, nil
		}
		res := itemResult{rep: msg.rep, err: msg.err, elapsed: msg.elapsed}
		if msg.rep.Title != "" {
			res.text = report.Render(msg.rep)
		}
		m.results[msg.key] = res
		m.status = fmt.Sprintf("完成 (%s)", report.FormatElapsed(msg.elapsed))
		if m.selectedKey() == msg.key {
			m.refreshContent()
			m.content.GotoTop()
		}
		return m, nil
	case copyResultMsg:
		if msg.err != nil {
			m.status = "复制失败: " + msg.err.Error()
		} else {
			m.status = "已复制到剪贴板 (" + msg.method + ")"
		}
		return m, nil
	}
	return m, nil
}

func (m shellModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running != "" {
			m.cancelRunning()
			m.status = "已取消"
			m.refreshContent()
			return m, nil
		}
		return m.quit()
	case tea.KeyCtrlD:
		return m.quit()
	case tea.KeyTab:
		if m.showMenu {
			if m.focus == focusMenu {
				m.focus = focusContent
			} else {
				m.focus = focusMenu
			}
		}
		return m, nil
	case tea.KeyLeft:
		if m.showMenu {
			m.focus = focusMenu
		}
		return m, nil
	case tea.KeyRight:
		m.focus = focusContent
		return m, nil
	case tea.KeyUp, tea.KeyDown:
		if m.focus == focusMenu && m.showMenu {
			delta := 1
			if msg.Type == tea.KeyUp {
				delta = -1
			}
			m.moveSelection(delta)
			return m, nil
		}
		return m.scroll(msg)
	case tea.KeyPgUp, tea.KeyPgDown:
		return m.scroll(msg)
	case tea.KeyHome:
		m.content.GotoTop()
		return m, nil
	case tea.KeyEnd:
		m.content.GotoBottom()
		return m, nil
	case tea.KeyEnter:
		return m.activate(false)
	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			return m, nil
		}
		return m.handleRune(msg.Runes[0])
	}
	return m, nil
}

// scroll hands a navigation key to the content viewport.
func (m shellModel) scroll(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	return m, cmd
}

func (m shellModel) handleRune(r rune) (tea.Model, tea.Cmd) {
	switch r {
	case 'q', 'Q':
		return m.quit()
	case 'm', 'M':
		m.showMenu = !m.showMenu
		if m.showMenu {
			m.focus = focusMenu
		} else {
			m.focus = focusContent
		}
		m.layout()
		return m, nil
	case 'r', 'R':
		return m.activate(true)
	case 'c', 'C':
		res, ok := m.results[m.selectedKey()]
		if !ok || res.text == "" {
			m.status = "没有可复制的结果"
			return m, nil
		}
		return m, copyCmd(m.ctx, m.runner, res.text)
	}
	if r >= '0' && r <= '9' && m.showMenu {
		for i, item := range m.items {
			if item.Number == string(r) {
				m.selectIndex(i)
				return m.activate(false)
			}
		}
	}
	return m, nil
}

func (m shellModel) quit() (tea.Model, tea.Cmd) {
	m.cancelRunning()
	return m, tea.Quit
}

// activate shows the selected item's cached report, or runs it when there is
// none or refresh is set.
func (m shellModel) activate(refresh bool) (tea.Model, tea.Cmd) {
	key := m.selectedKey()
	if key == "" {
		return m, nil
	}
	m.focus = focusContent
	if _, ok := m.results[key]; ok && !refresh {
		m.refreshContent()
		return m, nil
	}
	if m.running == key {
		return m, nil
	}
	return m, m.startInvoke(key)
}

func (m *shellModel) startInvoke(key string) tea.Cmd {
	m.cancelRunning()
	m.seq++
	seq := m.seq
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.running = key
	m.status = ""
	delete(m.results, key)
	m.refreshContent()
	reg := m.reg
	return func() tea.Msg {
		defer cancel()
		start := time.Now()
		rep, err := reg.InvokeReport(ctx, key)
		return invokeResultMsg{seq: seq, key: key, rep: rep, err: err, elapsed: time.Since(start)}
	}
}

func (m *shellModel) cancelRunning() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.running != "" {
		// Results of the canceled run are dropped by sequence number.
		m.seq++
		m.running = ""
	}
}

func (m *shellModel) moveSelection(delta int) {
	if len(m.items) == 0 {
		return
	}
	next := (m.selected + delta + len(m.items)) % len(m.items)
	m.selectIndex(next)
}

func (m *shellModel) selectIndex(i int) {
	if i == m.selected {
		return
	}
	if m.running != "" && m.running != m.items[i].Key {
		m.cancelRunning()
	}
	m.selected = i
	m.status = ""
	m.refreshContent()
	m.content.GotoTop()
}

func (m shellModel) selectedKey() string {
	if m.selected < 0 || m.selected >= len(m.items) {
		return ""
	}
	return m.items[m.selected].Key
}

func copyCmd(ctx context.Context, runner hostcmd.Runner, text string) tea.Cmd {
	return func() tea.Msg {
		method, err := clipboard.WriteText(ctx, runner, text)
		return copyResultMsg{method: method, err: err}
	}
}

func (m *shellModel) layout() {
	width := m.width - paneChrome
	if m.showMenu {
		width -= menuWidth + paneChrome
	}
	if width < minPaneWidth {
		width = minPaneWidth
	}
	height := m.height - 2 - paneChrome
	if height < 1 {
		height = 1
	}
	m.content.Width = width
	m.content.Height = height
}

func (m *shellModel) refreshContent() {
	m.content.SetContent(m.contentText())
}

func (m shellModel) contentText() string {
	key := m.selectedKey()
	if key == "" {
		return ""
	}
	item := m.items[m.selected]
	if m.running == key {
		return item.Title() + "\n\n正在运行，请稍候... (ctrl+c 取消)"
	}
	res, ok := m.results[key]
	if !ok {
		return fmt.Sprintf("%s\n\n%s\n\n按 Enter 或 %s 运行。", item.Title(), item.Description, item.Number)
	}
	text := res.text
	if res.err != nil {
		text += "\n错误: " + res.err.Error()
	}
	return text
}

func (m shellModel) View() string {
	theme := shellTheme()
	header := m.renderHeader(theme)
	help := m.renderHelp(theme)

	contentStyle := theme.Pane
	if m.focus == focusContent {
		contentStyle = theme.PaneFocused
	}
	content := contentStyle.Width(m.content.Width).Render(m.content.View())
	body := content
	if m.showMenu {
		menuStyle := theme.Pane
		if m.focus == focusMenu {
			menuStyle = theme.PaneFocused
		}
		menu := menuStyle.Width(menuWidth).Height(m.content.Height).Render(m.renderMenu(theme))
		body = lipgloss.JoinHorizontal(lipgloss.Top, menu, content)
	}
	return strings.Join([]string{header, body, help}, "\n")
}

func (m shellModel) renderHeader(theme ShellTheme) string {
	state := "就绪"
	stateStyle := theme.StatusOK
	if m.running != "" {
		state = m.spin.View() + " 运行中"
		stateStyle = theme.StatusBusy
	} else if res, ok := m.results[m.selectedKey()]; ok {
		state = string(res.rep.Status)
		if res.rep.Simulated {
			state += " (模拟数据)"
		}
		stateStyle = theme.status(res.rep.Status)
	}
	line := fmt.Sprintf("%s  %s%s  %s",
		theme.Brand.Render("vpstui"),
		theme.Label.Render("host="),
		theme.Value.Render(m.host),
		stateStyle.Render(state),
	)
	if m.status != "" {
		line += "  " + theme.Muted.Render(m.status)
	}
	return m.fit(line)
}

func (m shellModel) renderMenu(theme ShellTheme) string {
	lines := make([]string, 0, len(m.items))
	for i, item := range m.items {
		marker := " "
		switch {
		case m.running == item.Key:
			marker = m.spin.View()
		case hasResult(m.results, item.Key):
			marker = "•"
		}
		label := runewidth.Truncate(item.Title(), menuWidth-2, "…")
		label = runewidth.FillRight(label, menuWidth-2)
		style := theme.MenuItem
		if i == m.selected {
			style = theme.MenuSelected
		}
		lines = append(lines, marker+" "+style.Render(label))
	}
	return strings.Join(lines, "\n")
}

func hasResult(results map[string]itemResult, key string) bool {
	_, ok := results[key]
	return ok
}

var helpKeys = [][2]string{
	{"↑↓", "选择/滚动"},
	{"Enter", "运行"},
	{"0-9", "快速选择"},
	{"Tab", "切换焦点"},
	{"m", "菜单"},
	{"r", "刷新"},
	{"c", "复制"},
	{"PgUp/PgDn", "翻页"},
	{"q", "退出"},
}

func (m shellModel) renderHelp(theme ShellTheme) string {
	parts := make([]string, 0, len(helpKeys))
	for _, kv := range helpKeys {
		parts = append(parts, theme.HelpKey.Render(kv[0])+" "+theme.HelpText.Render(kv[1]))
	}
	return m.fit(strings.Join(parts, "  "))
}

// fit cuts a styled line to the terminal width.
func (m shellModel) fit(line string) string {
	if m.width <= 0 || ansi.StringWidth(line) <= m.width {
		return line
	}
	return ansi.Truncate(line, m.width, "…")
}
