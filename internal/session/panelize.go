/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopanelize/internal/annotate"
	"gopanelize/internal/history"
	"gopanelize/internal/job"
	"gopanelize/internal/preset"
	"gopanelize/internal/progress"
	"gopanelize/internal/transplant"
)

// PollInterval is how long the controller waits on the worker between UI pumps.
const PollInterval = progress.MinInterval

// Progress phases shown while panelizing.
const (
	ProgressTitle     = "Running kikit"
	PhaseStarting     = "Starting up"
	PhasePanelization = "Panelization"
	PhaseRefresh      = "Pcbnew will now refresh panel, the UI might freeze"
	PhaseDone         = "Done"
)

// Input validation errors. They are reported before any job starts.
var (
	ErrNoInput          = errors.New("No input file specified")
	ErrNoOutput         = errors.New("No output file specified")
	ErrInputIsOpenBoard = errors.New("input is the currently opened board")
)

// OpenBoardError explains ErrInputIsOpenBoard.
type OpenBoardError struct{ Path string }

func (e *OpenBoardError) Error() string {
	return fmt.Sprintf("The file %s is the same as currently opened board. Cannot continue.\n\n"+
		"Please, run the panelization tool when no board is opened in pcbnew.", e.Path)
}

func (e *OpenBoardError) Unwrap() error { return ErrInputIsOpenBoard }

// FailureMessage is how any failure after validation is shown.
func FailureMessage(err error) string { return "Cannot perform:\n\n" + err.Error() }

// samePath compares two paths after resolving symlinks; unresolvable paths are
// compared by their absolute form.
func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return resolve(a) == resolve(b)
}

func resolve(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		p = r
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func (d *Dialog) validate(input, output string) error {
	switch {
	case input == "":
		return ErrNoInput
	case output == "":
		return ErrNoOutput
	case samePath(input, d.opts.Host.Board().FileName()):
		return &OpenBoardError{Path: input}
	}
	return nil
}

// Request is the form state a panelization runs with.
type Request struct {
	Input   string
	Output  string
	Changes preset.Preset
}

// Request snapshots the form. Call it on the thread that edits the form.
func (d *Dialog) Request() Request {
	return Request{Input: d.Input(), Output: d.Output(), Changes: d.Changes()}
}

// Panelize runs the engine on a worker, then replaces the live board with the result
// and marks it as a preview. Every failure is shown through the UI and returned.
func (d *Dialog) Panelize(ctx context.Context) error {
	return d.PanelizeRequest(ctx, d.Request())
}

// PanelizeRequest is Panelize over a snapshot taken with Request. It never reads the
// form, so it may run while the form is being edited.
func (d *Dialog) PanelizeRequest(ctx context.Context, req Request) error {
	ui := d.opts.UI
	rep := progress.New(ui, ui.Pump)
	rep.SetClock(d.opts.Now)
	ui.ShowProgress(ProgressTitle)
	defer ui.HideProgress()
	rep.Report(PhaseStarting, false)

	input, output := req.Input, req.Output
	if err := d.validate(input, output); err != nil {
		ui.Error(err.Error())
		return err
	}
	cfg := preset.MustDefault()
	preset.Merge(cfg, req.Changes)

	entry, err := d.run(ctx, rep, input, output, cfg)
	entry.Preset = req.Changes
	d.mu.Lock()
	d.lastRun = &entry
	d.mu.Unlock()
	d.record(ctx, entry)
	if err != nil {
		d.log.Error("panelization failed", slog.String("job", entry.ID), slog.Any("err", err))
		ui.Error(FailureMessage(err))
		return err
	}
	return nil
}

func (d *Dialog) run(ctx context.Context, rep *progress.Reporter, input, output string, cfg preset.Preset) (history.Entry, error) {
	scratch, err := os.MkdirTemp(d.opts.ScratchRoot, "gopanelize-")
	if err != nil {
		return history.Entry{Input: input, Output: output, Status: history.StatusFailed, Message: err.Error()}, err
	}
	r := job.New(d.opts.Engine, d.opts.Host, scratch)
	defer func() {
		if cerr := r.Close(); cerr != nil {
			d.log.Warn("scratch cleanup failed", slog.String("dir", scratch), slog.Any("err", cerr))
		}
	}()
	if d.opts.Crash != nil {
		d.opts.Crash.SetJob(r.ID(), input, output)
	}
	entry := history.Entry{ID: r.ID(), Input: input, Output: output, Started: d.opts.Now()}
	fail := func(err error) (history.Entry, error) {
		entry.Status = history.StatusFailed
		entry.Message = err.Error()
		var f *job.Failure
		if errors.As(err, &f) {
			entry.Trace = f.Trace
		}
		entry.Finished = d.opts.Now()
		return entry, err
	}

	if err := r.Start(ctx, input, output, cfg); err != nil {
		return fail(err)
	}
	for {
		phase := PhasePanelization
		if line := r.LastOutput(); line != "" {
			phase += ": " + line
		}
		rep.Report(phase, false)
		if r.Join(d.opts.PollInterval) {
			break
		}
	}
	if err := r.Err(); err != nil {
		return fail(err)
	}

	live := d.opts.Host.Board()
	stats, err := transplant.Transplant(r.Generated(), live, d.opts.Host.MajorVersion(), rep.Func())
	if err != nil {
		return fail(err)
	}
	if _, err := annotate.Annotate(live, output); err != nil {
		return fail(err)
	}
	rep.Report(PhaseRefresh, true)
	d.opts.Host.Refresh()
	rep.Report(PhaseDone, true)
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()

	res := r.Result()
	entry.Status = history.StatusSucceeded
	entry.Digest = res.Digest
	entry.Finished = d.opts.Now()
	d.log.Info("panel transplanted",
		slog.String("job", entry.ID),
		slog.Int("removed", stats.Removed),
		slog.Int("added", stats.Added),
		slog.Duration("took", entry.Duration()))
	return entry, nil
}

func (d *Dialog) record(ctx context.Context, e history.Entry) {
	d.opts.Telemetry.Event("panelize", map[string]any{
		"status":      string(e.Status),
		"duration_ms": e.Duration().Milliseconds(),
		"sections":    e.Preset.SectionNames(),
	})
	if d.opts.History == nil || e.ID == "" {
		return
	}
	if err := d.opts.History.Record(ctx, e); err != nil {
		d.log.Warn("history record failed", slog.String("job", e.ID), slog.Any("err", err))
	}
}
