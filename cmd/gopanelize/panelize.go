/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"gopanelize/internal/board/memboard"
	"gopanelize/internal/command"
	"gopanelize/internal/config"
	"gopanelize/internal/history"
	applog "gopanelize/internal/log"
	"gopanelize/internal/preset"
	"gopanelize/internal/report"
	"gopanelize/internal/schema"
	"gopanelize/internal/session"
	"gopanelize/internal/storage"
)

// PanelizeCmd is the non-interactive flow: the engine writes the panel and nothing is previewed.
type PanelizeCmd struct {
	SectionFlags `embed:""`

	Input   string `arg:"" help:"Source board." type:"existingfile"`
	Output  string `arg:"" help:"Panel file to write." type:"path"`
	DryRun  bool   `help:"Print the equivalent kikit command instead of running it."`
	Dialect string `help:"Shell dialect for --dry-run (posix or windows)."`
}

func (c *PanelizeCmd) Run(e *env) error {
	cfg, diff, err := c.resolve(schema.Default())
	if err != nil {
		return err
	}
	if c.DryRun {
		dl, err := e.dialect(c.Dialect)
		if err != nil {
			return err
		}
		e.println(command.Render(diff, dl, c.Input, c.Output))
		return nil
	}
	eng, err := e.engine()
	if err != nil {
		return err
	}

	id := uuid.NewString()
	l := applog.WithJob(applog.WithComponent("cli"), id)
	e.crash.SetJob(id, c.Input, c.Output)
	entry := history.Entry{ID: id, Input: c.Input, Output: c.Output, Preset: diff, Started: time.Now()}

	runErr := eng.Panelize(applog.ContextWithJob(e.ctx, id), c.Input, c.Output, cfg, func(line string) { e.println(line) })
	entry.Finished = time.Now()
	if runErr != nil {
		entry.Status = history.StatusFailed
		entry.Message = runErr.Error()
	} else {
		entry.Status = history.StatusSucceeded
		if d, err := storage.Digest(c.Output); err == nil {
			entry.Digest = d
		}
	}
	e.tel.Event("panelize", map[string]any{
		"status":      string(entry.Status),
		"duration_ms": entry.Duration().Milliseconds(),
		"sections":    diff.SectionNames(),
	})
	e.recordRun(entry)
	if runErr != nil {
		return runErr
	}
	l.Info("panel written", slog.String("output", c.Output), slog.String("digest", entry.Digest))
	e.printf("Panel written to %s\n", c.Output)
	return nil
}

func (e *env) recordRun(entry history.Entry) {
	st, err := e.openHistory()
	if err != nil {
		e.log.Warn("history unavailable", slog.Any("err", err))
		return
	}
	if st == nil {
		return
	}
	defer st.Close()
	if err := st.Record(e.ctx, entry); err != nil {
		e.log.Warn("history record failed", slog.String("job", entry.ID), slog.Any("err", err))
	}
}

// PreviewCmd runs the dialog flow headless: the panel replaces the content of a live
// board document, which is then saved.
type PreviewCmd struct {
	SectionFlags `embed:""`

	Live   string `required:"" help:"Live board document that receives the preview." type:"existingfile"`
	Input  string `arg:"" help:"Source board." type:"existingfile"`
	Output string `arg:"" help:"Panel file to write." type:"path"`
	Sheet  string `help:"Write a PDF job sheet to this path." type:"path"`
	Yes    bool   `short:"y" help:"Replace a non-empty live board without asking."`
}

// errDeclined is returned when a non-empty live board would be replaced without --yes.
var errDeclined = errors.New("live board is not empty; pass --yes to replace it")

func (c *PreviewCmd) Run(e *env) error {
	cfg, _, err := c.resolve(schema.Default())
	if err != nil {
		return err
	}
	eng, err := e.engine()
	if err != nil {
		return err
	}
	live, err := memboard.Load(c.Live)
	if err != nil {
		return fmt.Errorf("live board: %w", err)
	}
	major := e.cfg.Engine.HostMajor
	if major <= 0 {
		major = memboard.DefaultMajorVersion
	}
	host := memboard.NewSession(live, major)
	ui := session.NewHeadless(c.Yes)
	opts := session.Options{
		Host:      host,
		Engine:    eng,
		UI:        ui,
		Registry:  schema.Default(),
		Telemetry: e.tel,
		Crash:     e.crash,
	}
	if dl, err := e.dialect(""); err == nil {
		opts.Dialect = dl
	}
	st, err := e.openHistory()
	if err != nil {
		e.log.Warn("history unavailable", slog.Any("err", err))
	}
	if st != nil {
		defer st.Close()
		opts.History = st
	}

	initial := preset.Copy(cfg)
	initial.Set(schema.InputSection, schema.InputOption, c.Input)
	initial.Set(schema.OutputSection, schema.OutputOption, c.Output)

	plugin := session.NewPlugin(opts)
	if e.cfg.General.RememberPreset {
		if dir, err := config.Dir(); err == nil {
			plugin.StatePath = filepath.Join(dir, "last-preset.json")
		}
	}
	var dlg *session.Dialog
	err = plugin.Run(func(d *session.Dialog) error {
		dlg = d
		d.PopulateInitialValue(initial)
		d.OnChange()
		return d.Panelize(e.ctx)
	})
	if err != nil {
		return err
	}
	if dlg == nil {
		return errDeclined
	}
	if err := live.Save(c.Live); err != nil {
		return fmt.Errorf("save live board: %w", err)
	}
	e.printf("Preview placed into %s (panel saved in %s)\n", c.Live, c.Output)
	if c.Sheet != "" {
		if err := writeSheet(c.Sheet, dlg, live); err != nil {
			return err
		}
		e.printf("Job sheet written to %s\n", c.Sheet)
	}
	return nil
}

func writeSheet(path string, d *session.Dialog, live *memboard.Board) error {
	jsonText, cmd := d.Outputs()
	run, _ := d.LastRun()
	caption := filepath.Base(d.Output())
	s := report.Sheet{
		JobID:     run.ID,
		Input:     d.Input(),
		Output:    d.Output(),
		Command:   cmd,
		Preset:    jsonText,
		Digest:    run.Digest,
		Counts:    report.CountsOf(live),
		Thumbnail: report.Thumbnail(live, 640, 400, caption),
		Generated: time.Now(),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return report.WriteSheet(path, s)
}
