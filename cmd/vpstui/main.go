// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/shayne/vpstui/internal/api"
	"github.com/shayne/vpstui/internal/config"
	"github.com/shayne/vpstui/internal/handlers"
	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/report"
	"github.com/shayne/vpstui/internal/tui"
	"github.com/shayne/yargs"
)

func main() {
	if err := runCLI(); err != nil {
		reportCLIError(err)
		os.Exit(1)
	}
}

type usageError struct {
	message string
	err     error
}

func (e usageError) Error() string {
	return e.message
}

func (e usageError) Unwrap() error {
	return e.err
}

type silentError struct {
	err error
}

func (e silentError) Error() string {
	return e.err.Error()
}

func (e silentError) Unwrap() error {
	return e.err
}

func reportCLIError(err error) {
	var usageErr usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintln(os.Stderr, usageErr.message)
		return
	}
	var quietErr silentError
	if errors.As(err, &quietErr) {
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}

func newUsageError(message string) error {
	return usageError{message: message}
}

func newSilentError(err error) error {
	if err == nil {
		return nil
	}
	return silentError{err: err}
}

var (
	version = "dev"
	commit  = ""
)

func runCLI() error {
	if shouldStartShell() {
		return runShell()
	}
	args := normalizeArgs(os.Args[1:])
	if len(args) == 0 {
		args = []string{"--help"}
	}
	subcommands := map[string]yargs.SubcommandHandler{
		"run":     handleRunCommand,
		"list":    handleListCommand,
		"port":    handlePortCommand,
		"tcp":     handleTCPCommand,
		"serve":   handleServeCommand,
		"config":  handleConfigCommand,
		"version": handleVersionCommand,
	}
	if err := yargs.RunSubcommands(context.Background(), args, helpConfig, struct{}{}, subcommands); err != nil {
		if errors.Is(err, yargs.ErrShown) {
			return nil
		}
		return err
	}
	return nil
}

type runFlags struct {
	Format  string `flag:"format" short:"f" help:"output format: text, yaml, or json"`
	Timeout string `flag:"timeout" help:"overall deadline for the check, e.g. 30s"`
	Verbose bool   `flag:"verbose" short:"v" help:"log host commands to stderr"`
}

type runArgs struct {
	Selection string `pos:"0" help:"menu number, key, or alias (see vpstui list)"`
}

type listFlags struct {
	Format string `flag:"format" short:"f" help:"output format: text, yaml, or json"`
}

type changeFlags struct {
	Yes     bool `flag:"yes" short:"y" help:"skip the confirmation prompt"`
	Verbose bool `flag:"verbose" short:"v" help:"log host commands to stderr"`
}

type portArgs struct {
	Action string `pos:"0" help:"open|close"`
	Port   string `pos:"1" help:"port number with optional /tcp or /udp"`
}

type tcpArgs struct {
	Action string `pos:"0?" help:"show|apply"`
}

type serveFlags struct {
	Listen  string `flag:"listen" help:"address to listen on (default from config)"`
	Verbose bool   `flag:"verbose" short:"v" help:"log requests and host commands to stderr"`
}

type configFlags struct {
	Timeout          string   `flag:"timeout" help:"set command_timeout"`
	BenchmarkTimeout string   `flag:"benchmark-timeout" help:"set benchmark_timeout"`
	LogLevel         string   `flag:"log-level" help:"set log_level (debug, info, warn, error)"`
	LogFile          string   `flag:"log-file" help:"set log_file"`
	NetworkLookup    bool     `flag:"network-lookup" help:"set network_lookup (true or false)"`
	PingTargets      string   `flag:"ping-targets" help:"set ping_targets as a comma separated list"`
	DiskTestDir      string   `flag:"disk-test-dir" help:"set disk_test_dir"`
	APIListen        string   `flag:"api-listen" help:"set api_listen"`
	Set              []string `flag:"set" help:"set any key as key=value (repeatable)"`
	Keys             bool     `flag:"keys" help:"list the settable keys"`
	Reset            bool     `flag:"reset" help:"delete the config file before applying other flags"`
}

var helpConfig = yargs.HelpConfig{
	Command: yargs.CommandInfo{
		Name:        "vpstui",
		Description: "VPS toolbox: system facts, benchmarks, and server setup checks",
		Examples: []string{
			"vpstui",
			"vpstui list",
			"vpstui run sysinfo",
			"vpstui run 2 --format json",
			"vpstui port open 8080/tcp",
			"vpstui tcp apply -y",
			"vpstui serve --listen 127.0.0.1:8787",
			"vpstui config --timeout 45s",
		},
	},
	SubCommands: map[string]yargs.SubCommandInfo{
		"run": {
			Name:        "run",
			Description: "Run one menu item and print its report",
			Usage:       "<selection> [--format text|yaml|json] [--timeout 30s]",
			Examples: []string{
				"vpstui run 1",
				"vpstui run disk --timeout 5m",
				"vpstui run network -f yaml",
			},
		},
		"list": {
			Name:        "list",
			Description: "List menu items",
		},
		"port": {
			Name:        "port",
			Description: "Open or close a firewall port",
			Usage:       "open|close <port>[/tcp|/udp] [-y]",
			Examples: []string{
				"vpstui port open 443",
				"vpstui port close 53/udp -y",
			},
		},
		"tcp": {
			Name:        "tcp",
			Description: "Show or apply the recommended TCP sysctl profile",
			Usage:       "[show|apply] [-y]",
		},
		"serve": {
			Name:        "serve",
			Description: "Serve reports as JSON over HTTP",
			Usage:       "[--listen 127.0.0.1:8787]",
		},
		"config": {
			Name:        "config",
			Description: "Show or update the local configuration",
			Usage:       "[--keys] [--reset] [--set key=value]",
		},
		"version": {
			Name:        "version",
			Description: "Show CLI version",
		},
	},
}

func normalizeArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	if args[0] == "--version" {
		return append([]string{"version"}, args[1:]...)
	}
	if args[0] == "help" {
		return rewriteHelpArgs(args[1:])
	}
	if isKnownCommand(args[0]) || isHelpFlag(args[0]) {
		return args
	}
	// A bare selection such as `vpstui 3` or `vpstui cpu` runs that item.
	if !strings.HasPrefix(args[0], "-") {
		return append([]string{"run"}, args...)
	}
	return args
}

func rewriteHelpArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"--help"}
	}
	if isKnownCommand(args[0]) {
		return []string{args[0], "--help"}
	}
	return []string{"--help"}
}

func isKnownCommand(value string) bool {
	switch value {
	case "run", "list", "port", "tcp", "serve", "config", "version":
		return true
	default:
		return false
	}
}

func isHelpFlag(value string) bool {
	switch strings.TrimSpace(value) {
	case "-h", "--help", "--help-llm":
		return true
	default:
		return false
	}
}

func handleRunCommand(_ context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, runFlags, runArgs](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	flags := result.SubCommandFlags
	format := strings.TrimSpace(flags.Format)
	if format == "" {
		format = "text"
	}
	if _, err := report.Encode(report.New(""), format); err != nil {
		return newUsageError(err.Error())
	}
	timeout, err := parseOptionalDuration("--timeout", flags.Timeout)
	if err != nil {
		return err
	}

	app, err := loadCLIApp(flags.Verbose)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return runSelection(ctx, os.Stdout, app.reg, result.Args.Selection, format)
}

// runSelection prints one report. A report cut short by ctx is still printed
// before the error is returned.
func runSelection(ctx context.Context, out io.Writer, reg *handlers.Registry, selection, format string) error {
	rep, err := reg.InvokeReport(ctx, selection)
	if errors.Is(err, handlers.ErrUnknownSelection) {
		return newUsageError(fmt.Sprintf("%v\nrun `vpstui list` to see the menu", err))
	}
	if rep.Title != "" {
		text, encErr := report.Encode(rep, format)
		if encErr != nil {
			return encErr
		}
		fmt.Fprint(out, text)
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", selection, err)
	}
	if rep.Status == report.StatusFail {
		return newSilentError(fmt.Errorf("%s: status %s", selection, rep.Status))
	}
	return nil
}

func handleListCommand(_ context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, listFlags, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	reg := handlers.Default(handlers.Env{})
	return writeItems(os.Stdout, reg.Items(), result.SubCommandFlags.Format)
}

func writeItems(out io.Writer, items []handlers.MenuItem, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		for _, item := range items {
			line := fmt.Sprintf("%-14s %-10s %s", item.Title(), item.Key, item.Description)
			fmt.Fprintln(out, strings.TrimRight(line, " "))
		}
		return nil
	case "yaml", "yml":
		data, err := yaml.Marshal(items)
		if err != nil {
			return fmt.Errorf("encode items: %w", err)
		}
		_, err = out.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	default:
		return newUsageError(fmt.Sprintf("unknown format %q (want text, yaml, or json)", format))
	}
}

func handlePortCommand(_ context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, changeFlags, portArgs](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	action, err := handlers.ParsePortAction(result.Args.Action)
	if err != nil {
		return newUsageError(err.Error())
	}
	port, err := handlers.ParsePort(result.Args.Port)
	if err != nil {
		return newUsageError(err.Error())
	}
	app, err := loadCLIApp(result.SubCommandFlags.Verbose)
	if err != nil {
		return err
	}
	env := app.reg.Env()
	fw, specs, err := handlers.PlanPort(env, action, port)
	if err != nil {
		return err
	}
	if !result.SubCommandFlags.Yes {
		title := fmt.Sprintf("%s %s (%s)?", portActionLabel(action), port, fw)
		if err := confirmChange(os.Stdin, os.Stdout, title, planDescription(specs)); err != nil {
			return err
		}
	}

	ctx, stop := signalContext()
	defer stop()
	ui := tui.NewProgress(os.Stdout, stdoutIsTerminal(), "port "+string(action), port.String())
	ui.Start()
	env.Steps = ui
	rep, runErr := handlers.ApplyPort(ctx, env, action, port)
	ui.Stop()
	fmt.Fprint(os.Stdout, report.Render(rep))
	if runErr != nil {
		return newSilentError(runErr)
	}
	return nil
}

func portActionLabel(action handlers.PortAction) string {
	if action == handlers.PortClose {
		return "关闭端口"
	}
	return "开放端口"
}

func handleTCPCommand(_ context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, changeFlags, tcpArgs](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	action := strings.ToLower(strings.TrimSpace(result.Args.Action))
	if action != "" && action != "show" && action != "apply" {
		return newUsageError(fmt.Sprintf("unknown tcp action %q (want show or apply)", result.Args.Action))
	}
	app, err := loadCLIApp(result.SubCommandFlags.Verbose)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	current, err := app.reg.InvokeReport(ctx, "tcp")
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, report.Render(current))
	if action != "apply" {
		return nil
	}
	if !result.SubCommandFlags.Yes {
		title := fmt.Sprintf("写入 %s 并重新加载 sysctl?", handlers.SysctlConfPath)
		if err := confirmChange(os.Stdin, os.Stdout, title, "将以 sudo 运行 sysctl --system"); err != nil {
			return err
		}
	}
	ui := tui.NewProgress(os.Stdout, stdoutIsTerminal(), "tcp apply", handlers.SysctlConfPath)
	ui.Start()
	env := app.reg.Env()
	env.Steps = ui
	rep, runErr := handlers.ApplyTCP(ctx, env)
	ui.Stop()
	fmt.Fprint(os.Stdout, report.Render(rep))
	if runErr != nil {
		return newSilentError(runErr)
	}
	return nil
}

// confirmChange asks before a host change. A declined change is a usage
// error wrapping tui.ErrNotConfirmed.
func confirmChange(in io.Reader, out io.Writer, title, description string) error {
	ok, err := tui.Confirm(in, out, title, description)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return usageError{message: "canceled", err: tui.ErrNotConfirmed}
	}
	return nil
}

func planDescription(specs []hostcmd.Spec) string {
	lines := make([]string, 0, len(specs))
	for _, spec := range specs {
		lines = append(lines, "$ "+hostcmd.CommandLine(spec))
	}
	return strings.Join(lines, "\n")
}

func handleServeCommand(_ context.Context, args []string) error {
	result, err := yargs.ParseAndHandleHelp[struct{}, serveFlags, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	app, err := loadCLIApp(result.SubCommandFlags.Verbose)
	if err != nil {
		return err
	}
	listen := strings.TrimSpace(result.SubCommandFlags.Listen)
	if listen == "" {
		listen = app.cfg.APIListen
	}
	ctx, stop := signalContext()
	defer stop()
	fmt.Fprintf(os.Stdout, "serving reports on http://%s\n", listen)
	return api.New(app.reg, app.logger).Serve(ctx, listen)
}

func handleConfigCommand(_ context.Context, args []string) error {
	networkLookup, err := parseBoolFlagValue(args, "network-lookup")
	if err != nil {
		return newUsageError(err.Error())
	}
	result, err := yargs.ParseAndHandleHelp[struct{}, configFlags, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	flags := result.SubCommandFlags
	if flags.Keys {
		writeConfigKeys(os.Stdout)
		return nil
	}
	updates, err := configUpdates(flags, networkLookup)
	if err != nil {
		return err
	}
	if flags.Reset {
		if err := config.RemoveConfigFile(); err != nil {
			return fmt.Errorf("failed to reset config: %w", err)
		}
		if len(updates) == 0 {
			fmt.Fprintln(os.Stdout, "config reset to defaults")
			return nil
		}
	}
	cfg, path, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(updates) == 0 {
		return showConfig(os.Stdout, cfg, path)
	}
	for _, u := range updates {
		if err := cfg.Set(u.key, u.value); err != nil {
			return newUsageError(err.Error())
		}
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(os.Stdout, "wrote config to %s\n", path)
	return nil
}

type configUpdate struct {
	key   string
	value string
}

func configUpdates(flags configFlags, networkLookup boolFlagValue) ([]configUpdate, error) {
	var updates []configUpdate
	add := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			updates = append(updates, configUpdate{key: key, value: value})
		}
	}
	add("command_timeout", flags.Timeout)
	add("benchmark_timeout", flags.BenchmarkTimeout)
	add("log_level", flags.LogLevel)
	add("log_file", flags.LogFile)
	if networkLookup.set {
		updates = append(updates, configUpdate{key: "network_lookup", value: fmt.Sprint(networkLookup.value)})
	}
	add("ping_targets", flags.PingTargets)
	add("disk_test_dir", flags.DiskTestDir)
	add("api_listen", flags.APIListen)
	for _, entry := range flags.Set {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, newUsageError(fmt.Sprintf("invalid setting %q (expected key=value)", entry))
		}
		updates = append(updates, configUpdate{key: key, value: value})
	}
	return updates, nil
}

func writeConfigKeys(out io.Writer) {
	for _, key := range config.Keys() {
		fmt.Fprintln(out, key)
	}
}

func showConfig(out io.Writer, cfg config.Config, path string) error {
	data, err := config.Encode(cfg)
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}
	fmt.Fprintf(out, "Config path: %s\n%s\n", path, data)
	return nil
}

type boolFlagValue struct {
	set   bool
	value bool
}

func parseBoolFlagValue(args []string, name string) (boolFlagValue, error) {
	flag := "--" + name
	prefix := flag + "="
	var value boolFlagValue
	for _, arg := range args {
		if arg == flag {
			if value.set {
				return value, fmt.Errorf("%s specified more than once", flag)
			}
			value = boolFlagValue{set: true, value: true}
			continue
		}
		if strings.HasPrefix(arg, prefix) {
			if value.set {
				return value, fmt.Errorf("%s specified more than once", flag)
			}
			raw := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(arg, prefix)))
			switch raw {
			case "true", "1":
				value = boolFlagValue{set: true, value: true}
			case "false", "0":
				value = boolFlagValue{set: true, value: false}
			default:
				return value, fmt.Errorf("invalid value for %s (expected true or false)", flag)
			}
		}
	}
	return value, nil
}

func handleVersionCommand(_ context.Context, args []string) error {
	_, err := yargs.ParseAndHandleHelp[struct{}, struct{}, struct{}](args, helpConfig)
	if errors.Is(err, yargs.ErrShown) {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, versionString())
	return nil
}

func versionString() string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		trimmed = "dev"
	}
	if c := strings.TrimSpace(commit); c != "" {
		return fmt.Sprintf("%s (%s)", trimmed, c)
	}
	return trimmed
}

func parseOptionalDuration(flag, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, newUsageError(fmt.Sprintf("invalid %s %q (expected a positive duration such as 30s)", flag, value))
	}
	return d, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func shouldStartShell() bool {
	if os.Getenv("VPSTUI_NO_SHELL") != "" {
		return false
	}
	if len(os.Args) > 1 {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd())) && stdoutIsTerminal()
}
