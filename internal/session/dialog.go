/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package session is the interactive panelization controller: the dialog state
// behind the UI and the plugin object that survives between dialog invocations.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopanelize/internal/board"
	"gopanelize/internal/command"
	"gopanelize/internal/crash"
	"gopanelize/internal/engine"
	"gopanelize/internal/form"
	"gopanelize/internal/history"
	applog "gopanelize/internal/log"
	"gopanelize/internal/preset"
	"gopanelize/internal/schema"
	"gopanelize/internal/telemetry"
	"gopanelize/internal/undo"
	"gopanelize/internal/version"
)

// Recorder stores finished runs. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options wire a dialog to its collaborators. Host, Engine and UI are required.
type Options struct {
	Host     board.Host
	Engine   engine.Engine
	UI       UI
	Registry *schema.Registry
	Dialect  command.Dialect
	// ScratchRoot is where per-job scratch directories are created; empty uses the OS temp dir.
	ScratchRoot string
	History     Recorder
	Telemetry   telemetry.Sink
	Crash       *crash.Context
	// Now and PollInterval are overridable for tests.
	Now          func() time.Time
	PollInterval time.Duration
}

const undoScope = "preset"

// Title is the dialog window title.
func Title() string { return fmt.Sprintf("Panelize a board  (version %s)", version.String()) }

// Dialog holds the state of one panelization dialog.
type Dialog struct {
	opts Options
	form *form.Form
	log  *slog.Logger

	undo *undo.Manager
	// last is the form state after the most recent edit; it becomes the undo entry of the next one.
	last preset.Preset

	// OnOutputs receives the JSON and command text after every change.
	OnOutputs func(json, cmd string)
	// OnRelayout fires when control visibility changed.
	OnRelayout func()

	// mu guards the run results, which a panelization writes from its own goroutine.
	mu      sync.Mutex
	dirty   bool
	lastRun *history.Entry
}

// NewDialog builds the form and populates it from :default merged with initial.
func NewDialog(opts Options, initial preset.Preset) *Dialog {
	if opts.Registry == nil {
		opts.Registry = schema.Default()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = PollInterval
	}
	d := &Dialog{
		opts: opts,
		log:  applog.WithComponent("session"),
		undo: undo.NewManager(undo.Config{MaxPerScope: 100}),
	}
	d.form = form.New(opts.Registry, d.onEdit)
	d.PopulateInitialValue(initial)
	d.form.ShowOnlyRelevant()
	return d
}

// Form exposes the controls for rendering.
func (d *Dialog) Form() *form.Form { return d.form }

// Dirty reports whether a panel was transplanted into the live board.
func (d *Dialog) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

func (d *Dialog) Dialect() command.Dialect { return d.opts.Dialect }

// SetDialect switches the dialect of the generated command.
func (d *Dialog) SetDialect(dl command.Dialect) {
	d.opts.Dialect = dl
	d.emitOutputs()
}

// LastRun returns the ledger entry of the most recent Panelize, if any.
func (d *Dialog) LastRun() (history.Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastRun == nil {
		return history.Entry{}, false
	}
	return *d.lastRun, true
}

// PopulateInitialValue resets the form to :default merged with initial.
func (d *Dialog) PopulateInitialValue(initial preset.Preset) {
	p := preset.MustDefault()
	if initial != nil {
		preset.Merge(p, initial)
	}
	d.form.Populate(p)
	d.last = d.form.Collect()
	d.emitOutputs()
}

// CollectPreset returns :default updated with the form values. With includeInput the
// input and output sections are part of the result.
func (d *Dialog) CollectPreset(includeInput bool) preset.Preset {
	p := preset.MustDefault()
	if includeInput {
		p[schema.InputSection] = preset.Section{}
		p[schema.OutputSection] = preset.Section{}
	}
	for _, s := range d.form.Sections() {
		sec, ok := p[s.Key()]
		if !ok {
			continue
		}
		for k, v := range s.Collect() {
			sec[k] = v
		}
	}
	return p
}

// CollectRelevantPreset returns the relevant values of the engine sections.
func (d *Dialog) CollectRelevantPreset() preset.Preset { return d.form.CollectRelevant() }

// Changes is the minimal overlay of the relevant values over :default.
func (d *Dialog) Changes() preset.Preset {
	return preset.Diff(preset.MustDefault(), d.CollectRelevantPreset())
}

// Input and Output return the positional paths.
func (d *Dialog) Input() string {
	v, _ := d.form.Value(schema.InputSection, schema.InputOption)
	return v
}

func (d *Dialog) Output() string {
	v, _ := d.form.Value(schema.OutputSection, schema.OutputOption)
	return v
}

// Outputs renders the JSON overlay and the equivalent command.
func (d *Dialog) Outputs() (jsonText, cmd string) {
	changes := d.Changes()
	b, err := preset.Marshal(changes)
	if err != nil {
		b = []byte(err.Error())
	}
	return string(b), command.Render(changes, d.opts.Dialect, d.Input(), d.Output())
}

func (d *Dialog) emitOutputs() {
	if d.OnOutputs == nil {
		return
	}
	j, c := d.Outputs()
	d.OnOutputs(j, c)
}

// Edit applies a user edit to one option. Unknown options are rejected.
func (d *Dialog) Edit(section, option, value string) error {
	if !d.form.Edit(section, option, value) {
		return fmt.Errorf("unknown option %s.%s", section, option)
	}
	return nil
}

// onEdit runs after every user edit: it records undo history and refreshes layout and outputs.
func (d *Dialog) onEdit() {
	if s, err := undo.Capture(undoScope, d.last, d.opts.Now()); err == nil {
		d.undo.Push(s)
	}
	d.last = d.form.Collect()
	d.OnChange()
}

// OnChange re-evaluates relevance and regenerates outputs. It reports whether the
// layout changed.
func (d *Dialog) OnChange() bool {
	relayout := d.form.ShowOnlyRelevant()
	if relayout && d.OnRelayout != nil {
		d.OnRelayout()
	}
	d.emitOutputs()
	return relayout
}

// Undo reverts the last burst of edits.
func (d *Dialog) Undo() bool { return d.step(d.undo.Undo) }

// Redo reapplies the last undone edit burst.
func (d *Dialog) Redo() bool { return d.step(d.undo.Redo) }

func (d *Dialog) step(op func(undo.Snapshot) (undo.Snapshot, bool)) bool {
	cur, err := undo.Capture(undoScope, d.form.Collect(), d.opts.Now())
	if err != nil {
		return false
	}
	s, ok := op(cur)
	if !ok {
		return false
	}
	p, err := s.Preset()
	if err != nil {
		d.log.Warn("undo snapshot unreadable", slog.Any("err", err))
		return false
	}
	d.form.Populate(p)
	d.last = d.form.Collect()
	d.OnChange()
	return true
}

// Export writes the current overlay as JSON.
func (d *Dialog) Export(path string) error {
	if err := preset.WriteFile(path, d.Changes()); err != nil {
		return fmt.Errorf("cannot export to file %s: %w", path, err)
	}
	d.log.Info("configuration exported", slog.String("path", path))
	return nil
}

// Import loads an overlay, validates it and repopulates the form. Import can be undone.
func (d *Dialog) Import(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}
	if err := preset.Validate(data, d.opts.Registry); err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}
	p, err := preset.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}
	if s, err := undo.Capture(undoScope, d.last, d.opts.Now()); err == nil {
		d.undo.Push(s)
	}
	d.PopulateInitialValue(p)
	d.OnChange()
	return nil
}
