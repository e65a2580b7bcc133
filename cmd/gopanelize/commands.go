/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"gopanelize/internal/board/memboard"
	"gopanelize/internal/command"
	"gopanelize/internal/config"
	"gopanelize/internal/engine"
	"gopanelize/internal/preset"
	"gopanelize/internal/schema"
	"gopanelize/internal/session"
	"gopanelize/internal/ui"
	"gopanelize/internal/version"
)

// DiffCmd prints the part of a configuration that differs from :default.
type DiffCmd struct {
	File        string `arg:"" help:"JSON preset, or a POSIX kikit command with --from-command." type:"existingfile"`
	FromCommand bool   `help:"FILE holds a kikit panelize command line."`
}

func (c *DiffCmd) Run(e *env) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	full := preset.MustDefault()
	if c.FromCommand {
		inv, err := command.ParsePOSIX(string(data))
		if err != nil {
			return err
		}
		layers, err := preset.Load(inv.Presets...)
		if err != nil {
			return err
		}
		preset.Merge(full, layers)
		preset.Merge(full, inv.Diff)
	} else {
		if err := preset.Validate(data, schema.Default()); err != nil {
			return err
		}
		p, err := preset.Unmarshal(data)
		if err != nil {
			return err
		}
		preset.Merge(full, p)
	}
	out, err := preset.Marshal(preset.Diff(preset.MustDefault(), full))
	if err != nil {
		return err
	}
	e.println(strings.TrimRight(string(out), "\n"))
	return nil
}

// CommandCmd renders the kikit command for a configuration. Missing paths become placeholders.
type CommandCmd struct {
	SectionFlags `embed:""`

	Input   string `arg:"" optional:"" help:"Source board."`
	Output  string `arg:"" optional:"" help:"Panel file."`
	Dialect string `help:"Shell dialect (posix or windows); defaults to the configured or platform dialect."`
	Copy    bool   `help:"Also copy the command to the clipboard."`
}

func (c *CommandCmd) Run(e *env) error {
	_, diff, err := c.resolve(schema.Default())
	if err != nil {
		return err
	}
	dl, err := e.dialect(c.Dialect)
	if err != nil {
		return err
	}
	text := command.Render(diff, dl, c.Input, c.Output)
	e.println(text)
	if c.Copy {
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
	}
	return nil
}

// FabCmd delegates to "kikit fab".
type FabCmd struct {
	House        string `arg:"" enum:"jlcpcb,pcbway,oshpark,neodenyy1,openpnp" help:"Fab house: jlcpcb, pcbway, oshpark, neodenyy1 or openpnp."`
	Board        string `arg:"" help:"Board to fabricate." type:"existingfile"`
	OutputDir    string `arg:"" help:"Directory for the generated data." type:"path"`
	DRC          bool   `name:"drc" default:"true" negatable:"" help:"Run design rule checks first."`
	NameTemplate string `help:"Template for output file names."`
	Debug        bool   `help:"Keep intermediate files."`
	Assembly     bool   `help:"Generate assembly data (jlcpcb, pcbway, neodenyy1, openpnp)."`
	Schematic    string `help:"Schematic used for assembly data." type:"path"`
	Field        string `help:"Comma separated component fields holding the part number."`
	Corrections  string `help:"Rotation/offset corrections file." type:"path"`
	MissingError bool   `help:"Fail when a component lacks a part number."`
}

func (c *FabCmd) flags() []string {
	var f []string
	if !c.DRC {
		f = append(f, "--no-drc")
	}
	if c.NameTemplate != "" {
		f = append(f, "--nametemplate", c.NameTemplate)
	}
	if c.Debug {
		f = append(f, "--debug")
	}
	if c.Assembly {
		f = append(f, "--assembly")
	}
	if c.Schematic != "" {
		f = append(f, "--schematic", c.Schematic)
	}
	if c.Field != "" {
		f = append(f, "--field", c.Field)
	}
	if c.Corrections != "" {
		f = append(f, "--corrections", c.Corrections)
	}
	if c.MissingError {
		f = append(f, "--missingError")
	}
	return f
}

func (c *FabCmd) Run(e *env) error {
	if c.Assembly && c.House == "oshpark" {
		return errors.New("oshpark does not support assembly data")
	}
	ex := &engine.Exec{Command: e.cfg.Engine.Command}
	req := engine.FabRequest{House: c.House, Board: c.Board, OutputDir: c.OutputDir, Flags: c.flags()}
	if err := ex.Fab(e.ctx, req, func(line string) { e.println(line) }); err != nil {
		return err
	}
	e.printf("Fabrication data written to %s\n", c.OutputDir)
	return nil
}

// HistoryCmd lists recorded runs, newest first.
type HistoryCmd struct {
	Limit int    `short:"n" default:"20" help:"Maximum number of runs to list."`
	Show  string `help:"Print the details of one run."`
}

func (c *HistoryCmd) Run(e *env) error {
	st, err := e.openHistory()
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("history is disabled (history.enabled in config.yaml)")
	}
	defer st.Close()

	if c.Show != "" {
		r, err := st.Get(e.ctx, c.Show)
		if err != nil {
			return err
		}
		e.printf("id:       %s\n", r.ID)
		e.printf("status:   %s\n", r.Status)
		e.printf("input:    %s\n", r.Input)
		e.printf("output:   %s\n", r.Output)
		e.printf("started:  %s\n", r.Started.Format("2006-01-02 15:04:05"))
		e.printf("duration: %s\n", r.Duration())
		if r.Digest != "" {
			e.printf("digest:   %s\n", r.Digest)
		}
		if r.Message != "" {
			e.printf("message:  %s\n", r.Message)
		}
		if b, err := preset.Marshal(r.Preset); err == nil && !r.Preset.IsEmpty() {
			e.printf("preset:\n%s", b)
		}
		if r.Trace != "" {
			e.printf("trace:\n%s\n", r.Trace)
		}
		return nil
	}

	runs, err := st.List(e.ctx, c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		e.println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		e.printf("%s  %-9s  %-19s  %8s  %s -> %s\n",
			r.ID, r.Status, r.Started.Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Millisecond), r.Input, r.Output)
	}
	return nil
}

// UICmd opens the desktop dialog over a live board document and saves it when a
// panel was placed.
type UICmd struct {
	Live string `required:"" help:"Live board document." type:"existingfile"`
}

func (c *UICmd) Run(e *env) error {
	live, err := memboard.Load(c.Live)
	if err != nil {
		return fmt.Errorf("live board: %w", err)
	}
	eng, err := e.engine()
	if err != nil {
		return err
	}
	major := e.cfg.Engine.HostMajor
	if major <= 0 {
		major = memboard.DefaultMajorVersion
	}
	host := memboard.NewSession(live, major)
	opts := session.Options{
		Host:      host,
		Engine:    eng,
		Registry:  schema.Default(),
		Telemetry: e.tel,
		Crash:     e.crash,
	}
	if dl, err := e.dialect(""); err == nil {
		opts.Dialect = dl
	}
	if st, err := e.openHistory(); err == nil && st != nil {
		defer st.Close()
		opts.History = st
	}
	var statePath string
	if e.cfg.General.RememberPreset {
		if dir, err := config.Dir(); err == nil {
			statePath = filepath.Join(dir, "last-preset.json")
		}
	}
	if err := ui.Run(opts, statePath); err != nil {
		return err
	}
	if host.Refreshes() > 0 {
		if err := live.Save(c.Live); err != nil {
			return fmt.Errorf("save live board: %w", err)
		}
		e.printf("Preview saved into %s\n", c.Live)
	}
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	e.println("gopanelize", version.String())
	return nil
}
