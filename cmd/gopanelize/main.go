/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command gopanelize builds multi-copy PCB panels, previews them in a live board
// document and reproduces interactive sessions as scriptable commands.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"gopanelize/internal/command"
	"gopanelize/internal/config"
	"gopanelize/internal/crash"
	"gopanelize/internal/engine"
	"gopanelize/internal/history"
	applog "gopanelize/internal/log"
	"gopanelize/internal/telemetry"
	"gopanelize/internal/version"
)

type cli struct {
	Config string `help:"Configuration file (default: config.yaml in the per-user config dir)." type:"path"`

	Panelize PanelizeCmd `cmd:"" help:"Run the panelization engine on a board."`
	Preview  PreviewCmd  `cmd:"" help:"Panelize and place the result into a live board document."`
	Diff     DiffCmd     `cmd:"" help:"Print the minimal JSON configuration of a preset or command."`
	Command  CommandCmd  `cmd:"" help:"Print the kikit command equivalent to a configuration."`
	Fab      FabCmd      `cmd:"" help:"Produce manufacturing data for a fab house."`
	History  HistoryCmd  `cmd:"" help:"List recorded panelization runs."`
	UI       UICmd       `cmd:"" name:"ui" help:"Open the interactive panelization dialog (build with -tags fyne)."`
	Version  VersionCmd  `cmd:"" help:"Print version information."`
}

// env carries process-wide collaborators into command Run methods.
type env struct {
	ctx   context.Context
	cfg   config.AppConfig
	out   io.Writer
	crash *crash.Context
	tel   telemetry.Sink
	log   *slog.Logger
}

func (e *env) engine() (engine.Engine, error) {
	return engine.New(e.cfg.Engine.Kind, e.cfg.Engine.Command)
}

// dialect resolves an explicit flag, then the configured default, then the platform.
func (e *env) dialect(flag string) (command.Dialect, error) {
	switch {
	case flag != "":
		return command.ParseDialect(flag)
	case e.cfg.General.Dialect != "":
		return command.ParseDialect(e.cfg.General.Dialect)
	}
	return command.PlatformDialect(), nil
}

// openHistory returns nil when the ledger is disabled.
func (e *env) openHistory() (*history.Store, error) {
	if !e.cfg.History.Enabled {
		return nil, nil
	}
	dsn, err := e.cfg.HistoryDSN()
	if err != nil {
		return nil, err
	}
	return history.Open(e.ctx, dsn)
}

func (e *env) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.out, format, args...)
}

func (e *env) println(args ...any) {
	_, _ = fmt.Fprintln(e.out, args...)
}

func loadConfig(path string) (config.AppConfig, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// run parses args and executes the selected command. It returns the process exit code.
func run(args []string, stdout, stderr io.Writer, cc *crash.Context) int {
	var c cli
	exitCode := -1
	parser, err := kong.New(&c,
		kong.Name("gopanelize"),
		kong.Description("PCB panelization orchestrator."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		// --help and friends
		return exitCode
	}
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	cfg, cfgErr := loadConfig(c.Config)
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   stderr,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}

	var sink telemetry.Sink = telemetry.Nop{}
	if cfg.General.TelemetryOptIn {
		tc := telemetry.New(telemetry.Config{
			OptIn:     true,
			EventsURL: cfg.Telemetry.EventsURL,
			CrashURL:  cfg.Telemetry.CrashURL,
			Token:     config.Token(),
		})
		telemetry.SetDefault(tc)
		defer func() {
			fctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			tc.Flush(fctx)
		}()
		sink = tc
	}

	e := &env{ctx: context.Background(), cfg: cfg, out: stdout, crash: cc, tel: sink, log: l}
	l.Debug("start", slog.String("command", kctx.Command()))
	if err := kctx.Run(e); err != nil {
		l.Error("command failed", slog.String("command", kctx.Command()), slog.Any("err", err))
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func main() {
	cc := &crash.Context{}
	defer crash.Recover(cc)
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, cc))
}
