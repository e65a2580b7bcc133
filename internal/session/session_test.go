/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gopanelize/internal/annotate"
	"gopanelize/internal/board"
	"gopanelize/internal/board/boardtest"
	"gopanelize/internal/board/memboard"
	"gopanelize/internal/command"
	"gopanelize/internal/engine"
	"gopanelize/internal/history"
	"gopanelize/internal/preset"
	"gopanelize/internal/progress"
	"gopanelize/internal/schema"
)

type memRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (m *memRecorder) Record(_ context.Context, e history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type fakeSink struct{ events []string }

func (f *fakeSink) Event(name string, props map[string]any) {
	f.events = append(f.events, name+":"+props["status"].(string))
}

// stepClock advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	dir   string
	input string
	live  *memboard.Board
	host  *memboard.Session
	ui    *Headless
	rec   *memRecorder
	sink  *fakeSink
	opts  Options
}

func newFixture(t *testing.T, eng engine.Engine) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, input: filepath.Join(dir, "source.kicad_pcb")}
	if err := boardtest.Sample("src").Save(f.input); err != nil {
		t.Fatalf("save source: %v", err)
	}
	f.live = boardtest.Sample("live")
	f.live.SetFileName(filepath.Join(dir, "live.kicad_pcb"))
	f.host = memboard.NewSession(f.live, memboard.DefaultMajorVersion)
	f.ui = NewHeadless(true)
	f.rec = &memRecorder{}
	f.sink = &fakeSink{}
	f.opts = Options{
		Host: f.host, Engine: eng, UI: f.ui, Dialect: command.POSIX,
		ScratchRoot: dir, History: f.rec, Telemetry: f.sink, Now: stepClock(),
	}
	return f
}

func (f *fixture) dialog(t *testing.T, output string) *Dialog {
	t.Helper()
	d := NewDialog(f.opts, nil)
	mustEdit(t, d, schema.InputSection, schema.InputOption, f.input)
	mustEdit(t, d, schema.OutputSection, schema.OutputOption, output)
	return d
}

func mustEdit(t *testing.T, d *Dialog, sec, opt, val string) {
	t.Helper()
	if err := d.Edit(sec, opt, val); err != nil {
		t.Fatalf("Edit %s.%s: %v", sec, opt, err)
	}
}

func TestPanelizeReplacesLiveBoard(t *testing.T) {
	f := newFixture(t, &engine.Grid{})
	out := filepath.Join(f.dir, "out", "panel.kicad_pcb")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	d := f.dialog(t, out)
	mustEdit(t, d, "layout", "rows", "2")

	if err := d.Panelize(context.Background()); err != nil {
		t.Fatalf("Panelize: %v", err)
	}
	if f.host.Board() != board.Document(f.live) {
		t.Fatalf("live board identity changed")
	}
	src := boardtest.Counts(boardtest.Sample("src"))
	got := boardtest.Counts(f.live)
	if got[0] != 2*src[0]+1 || got[1] != 2*src[1] || got[2] != 2*src[2] || got[3] != 2*src[3] || got[4] != 2*src[4] {
		t.Fatalf("live counts = %v, source = %v", got, src)
	}
	marker := false
	for _, it := range f.live.Drawings() {
		if dr, ok := it.(*board.Drawing); ok && dr.Text == annotate.Text(out) {
			marker = true
		}
	}
	if !marker {
		t.Fatalf("preview marker missing")
	}
	if !d.Dirty() || f.host.Refreshes() != 1 {
		t.Fatalf("dirty=%v refreshes=%d", d.Dirty(), f.host.Refreshes())
	}
	pulses := f.ui.Pulses()
	if pulses[0] != progress.Prefix+PhaseStarting || pulses[len(pulses)-1] != progress.Prefix+PhaseDone {
		t.Fatalf("pulses = %q", pulses)
	}
	if f.ui.ProgressVisible() || len(f.ui.Errors()) != 0 {
		t.Fatalf("visible=%v errors=%q", f.ui.ProgressVisible(), f.ui.Errors())
	}
	run, ok := d.LastRun()
	if !ok || run.Status != history.StatusSucceeded || run.Digest == "" {
		t.Fatalf("last run = %+v", run)
	}
	if v, _ := run.Preset.Get("layout", "rows"); v != "2" {
		t.Fatalf("recorded preset = %v", run.Preset)
	}
	if len(f.rec.entries) != 1 || len(f.sink.events) != 1 || f.sink.events[0] != "panelize:succeeded" {
		t.Fatalf("history=%d telemetry=%v", len(f.rec.entries), f.sink.events)
	}
	if entries, _ := filepath.Glob(filepath.Join(f.dir, "gopanelize-*")); len(entries) != 0 {
		t.Fatalf("scratch dirs left behind: %v", entries)
	}
}

func TestPanelizeRequestIgnoresLaterEdits(t *testing.T) {
	f := newFixture(t, &engine.Grid{})
	// edits and the worker both read the clock
	f.opts.Now = time.Now
	out := filepath.Join(f.dir, "panel.kicad_pcb")
	d := f.dialog(t, out)
	mustEdit(t, d, "layout", "rows", "2")
	req := d.Request()

	errc := make(chan error, 1)
	go func() { errc <- d.PanelizeRequest(context.Background(), req) }()
	for _, rows := range []string{"3", "4", "5"} {
		mustEdit(t, d, "layout", "rows", rows)
	}
	mustEdit(t, d, schema.OutputSection, schema.OutputOption, "")
	if err := <-errc; err != nil {
		t.Fatalf("PanelizeRequest: %v", err)
	}

	run, ok := d.LastRun()
	if !ok || run.Output != out {
		t.Fatalf("last run = %+v", run)
	}
	if v, _ := run.Preset.Get("layout", "rows"); v != "2" {
		t.Fatalf("recorded preset = %v", run.Preset)
	}
	src := boardtest.Counts(boardtest.Sample("src"))
	if got := boardtest.Counts(f.live); got[1] != 2*src[1] {
		t.Fatalf("live counts = %v, source = %v", got, src)
	}
	if !d.Dirty() {
		t.Fatal("dialog not dirty after transplant")
	}
}

func TestWorkerFailureLeavesLiveBoardUntouched(t *testing.T) {
	boom := errors.New("Cannot load board: source.kicad_pcb is broken")
	f := newFixture(t, engine.Func(func(context.Context, string, string, preset.Preset, func(string)) error {
		return boom
	}))
	before := boardtest.Counts(f.live)
	d := f.dialog(t, filepath.Join(f.dir, "panel.kicad_pcb"))

	err := d.Panelize(context.Background())
	if err == nil || err.Error() != boom.Error() {
		t.Fatalf("Panelize = %v, want %v", err, boom)
	}
	if got := boardtest.Counts(f.live); got != before {
		t.Fatalf("live board changed: %v -> %v", before, got)
	}
	if msgs := f.ui.Errors(); len(msgs) != 1 || msgs[0] != "Cannot perform:\n\n"+boom.Error() {
		t.Fatalf("errors = %q", msgs)
	}
	if d.Dirty() || f.host.Refreshes() != 0 || f.ui.ProgressVisible() {
		t.Fatalf("session changed after failure")
	}
	if len(f.rec.entries) != 1 || f.rec.entries[0].Status != history.StatusFailed || f.rec.entries[0].Trace == "" {
		t.Fatalf("history = %+v", f.rec.entries)
	}
}

func TestValidationStopsBeforeJob(t *testing.T) {
	calls := 0
	f := newFixture(t, engine.Func(func(context.Context, string, string, preset.Preset, func(string)) error {
		calls++
		return nil
	}))

	d := NewDialog(f.opts, nil)
	if err := d.Panelize(context.Background()); !errors.Is(err, ErrNoInput) {
		t.Fatalf("no input: %v", err)
	}
	mustEdit(t, d, schema.InputSection, schema.InputOption, f.input)
	if err := d.Panelize(context.Background()); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("no output: %v", err)
	}
	mustEdit(t, d, schema.InputSection, schema.InputOption, filepath.Join(f.dir, ".", "live.kicad_pcb"))
	mustEdit(t, d, schema.OutputSection, schema.OutputOption, filepath.Join(f.dir, "p.kicad_pcb"))
	err := d.Panelize(context.Background())
	if !errors.Is(err, ErrInputIsOpenBoard) {
		t.Fatalf("open board: %v", err)
	}
	msgs := f.ui.Errors()
	if len(msgs) != 3 || msgs[0] != "No input file specified" || !strings.Contains(msgs[2], "same as currently opened board") {
		t.Fatalf("errors = %q", msgs)
	}
	if calls != 0 || len(f.rec.entries) != 0 {
		t.Fatalf("job started: calls=%d history=%d", calls, len(f.rec.entries))
	}
}

func TestOutputsFollowEdits(t *testing.T) {
	f := newFixture(t, &engine.Grid{})
	d := NewDialog(f.opts, nil)
	var lastJSON, lastCmd string
	d.OnOutputs = func(j, c string) { lastJSON, lastCmd = j, c }

	mustEdit(t, d, "layout", "rows", "3")
	if !strings.Contains(lastJSON, `"rows": "3"`) {
		t.Fatalf("json = %s", lastJSON)
	}
	want := "kikit panelize \\\n    --layout 'rows: 3' \\\n    '" + command.MissingInput + "' '" + command.MissingOutput + "'"
	if lastCmd != want {
		t.Fatalf("cmd = %q, want %q", lastCmd, want)
	}
	d.SetDialect(command.Windows)
	if !strings.HasPrefix(lastCmd, "kikit panelize^\n") {
		t.Fatalf("windows cmd = %q", lastCmd)
	}

	// Irrelevant options never reach the overlay.
	mustEdit(t, d, "cuts", "clearance", "5mm")
	if _, ok := d.Changes()["cuts"]; ok {
		t.Fatalf("irrelevant option in changes: %v", d.Changes())
	}
	mustEdit(t, d, "cuts", "type", "vcuts")
	if v, _ := d.Changes().Get("cuts", "clearance"); v != "5mm" {
		t.Fatalf("relevant option missing: %v", d.Changes())
	}
	if err := d.Edit("cuts", "bogus", "1"); err == nil {
		t.Fatalf("unknown option accepted")
	}
}

func TestRelayoutSignal(t *testing.T) {
	f := newFixture(t, &engine.Grid{})
	d := NewDialog(f.opts, nil)
	relayouts := 0
	d.OnRelayout = func() { relayouts++ }
	mustEdit(t, d, "layout", "rows", "2")
	if relayouts != 0 {
		t.Fatalf("text edit caused relayout")
	}
	mustEdit(t, d, "tabs", "type", "full")
	if relayouts != 1 {
		t.Fatalf("type change did not relayout: %d", relayouts)
	}
}

func TestUndoRedo(t *testing.T) {
	f := newFixture(t, &engine.Grid{})
	d := NewDialog(f.opts, nil)
	mustEdit(t, d, "layout", "rows", "3")
	mustEdit(t, d, "layout", "rows", "4")
	rows := func() string { v, _ := d.Form().Value("layout", "rows"); return v }

	if !d.Undo() || rows() != "3" {
		t.Fatalf("first undo: rows=%s", rows())
	}
	if !d.Undo() || rows() != "1" {
		t.Fatalf("second undo: rows=%s", rows())
	}
	if d.Undo() {
		t.Fatalf("undo past the beginning")
	}
	if !d.Redo() || rows() != "3" {
		t.Fatalf("redo: rows=%s", rows())
	}
}

func TestExportImport(t *testing.T) {
	f := newFixture(t, &engine.Grid{})
	d := NewDialog(f.opts, nil)
	mustEdit(t, d, "layout", "rows", "3")
	mustEdit(t, d, "cuts", "type", "mousebites")
	path := filepath.Join(f.dir, "cfg.json")
	if err := d.Export(path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	b, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(b), "{\n    \"cuts\": {") {
		t.Fatalf("export format:\n%s", b)
	}

	other := NewDialog(f.opts, nil)
	if err := other.Import(path); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !preset.Equal(mustJSON(t, other.Changes()), mustJSON(t, d.Changes())) {
		t.Fatalf("changes differ: %v vs %v", other.Changes(), d.Changes())
	}
	if !other.Undo() {
		t.Fatalf("import should be undoable")
	}
	if len(other.Changes()) != 0 {
		t.Fatalf("undo of import left changes: %v", other.Changes())
	}

	bad := filepath.Join(f.dir, "bad.json")
	_ = os.WriteFile(bad, []byte(`{"layot": {"rows": "2"}}`), 0o644)
	err := other.Import(bad)
	if err == nil || !strings.Contains(err.Error(), `did you mean "layout"`) {
		t.Fatalf("Import bad = %v", err)
	}
}

func mustJSON(t *testing.T, p preset.Preset) string {
	t.Helper()
	b, err := preset.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestCollectPreset(t *testing.T) {
	f := newFixture(t, &engine.Grid{})
	d := NewDialog(f.opts, preset.Preset{"input": {schema.InputOption: "a.kicad_pcb"}, "layout": {"cols": 2}})
	withInput := d.CollectPreset(true)
	if v, _ := withInput.Get("input", schema.InputOption); v != "a.kicad_pcb" {
		t.Fatalf("input = %q", v)
	}
	if v, _ := withInput.Get("layout", "cols"); v != "2" {
		t.Fatalf("cols = %q", v)
	}
	plain := d.CollectPreset(false)
	if _, ok := plain["input"]; ok {
		t.Fatalf("input section without includeInput")
	}
	if _, ok := d.CollectRelevantPreset()["output"]; ok {
		t.Fatalf("output section in relevant preset")
	}
}

func TestSamePath(t *testing.T) {
	dir := t.TempDir()
	if !samePath(filepath.Join(dir, "a", "..", "x"), filepath.Join(dir, "x")) {
		t.Fatalf("cleaned paths differ")
	}
	if samePath("", "") || samePath(filepath.Join(dir, "x"), filepath.Join(dir, "y")) {
		t.Fatalf("unexpected match")
	}
}
