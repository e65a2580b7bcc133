//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests drive the dialog view on Fyne's test driver. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"

	"gopanelize/internal/board/boardtest"
	"gopanelize/internal/board/memboard"
	"gopanelize/internal/engine"
	"gopanelize/internal/session"
)

func newTestView(t *testing.T) (*dialogView, *session.Dialog) {
	t.Helper()
	test.NewApp()
	w := test.NewWindow(nil)
	t.Cleanup(w.Close)
	host := memboard.NewSession(boardtest.Sample("live"), memboard.DefaultMajorVersion)
	opts := session.Options{Host: host, Engine: &engine.Grid{}, UI: session.NewHeadless(true)}
	d := session.NewDialog(opts, nil)
	v := newDialogView(d, w, newDesktopUI(w))
	w.SetContent(v.content())
	return v, d
}

func (v *dialogView) row(section, option string) *optionRow {
	for _, r := range v.rows {
		if r.section == section && r.ctl.Option().Name == option {
			return r
		}
	}
	return nil
}

func TestView_RowsPerControl(t *testing.T) {
	v, d := newTestView(t)
	n := 0
	for _, sf := range d.Form().Sections() {
		n += len(sf.Controls())
	}
	if len(v.rows) != n {
		t.Fatalf("rows = %d, controls = %d", len(v.rows), n)
	}
	r := v.row("cuts", "type")
	if r == nil || r.sel == nil {
		t.Fatalf("cuts.type should render as a select: %+v", r)
	}
	if r := v.row("layout", "rows"); r == nil || r.entry == nil {
		t.Fatalf("layout.rows should render as an entry")
	}
}

func TestView_EditUpdatesOutputs(t *testing.T) {
	v, d := newTestView(t)
	r := v.row("layout", "rows")
	test.Type(r.entry, "4")
	got, _ := d.Form().Value("layout", "rows")
	if !strings.Contains(got, "4") {
		t.Fatalf("form value = %q", got)
	}
	if !strings.Contains(v.jsonOut.Text, `"rows"`) {
		t.Fatalf("json output not refreshed: %s", v.jsonOut.Text)
	}
	if !strings.Contains(v.cmdOut.Text, "--layout") {
		t.Fatalf("command output not refreshed: %s", v.cmdOut.Text)
	}
}

func TestView_RelevanceHidesRows(t *testing.T) {
	v, _ := newTestView(t)
	clearance := v.row("cuts", "clearance")
	if clearance == nil {
		t.Fatal("missing cuts.clearance row")
	}
	v.row("cuts", "type").sel.SetSelected("none")
	if clearance.box.Visible() {
		t.Fatal("clearance should be hidden for cuts type none")
	}
	v.row("cuts", "type").sel.SetSelected("vcuts")
	if !clearance.box.Visible() {
		t.Fatal("clearance should be shown for vcuts")
	}
}

func TestView_UndoResyncsWidgets(t *testing.T) {
	v, d := newTestView(t)
	r := v.row("layout", "rows")
	before := r.entry.Text
	r.entry.SetText("7")
	if !d.Undo() {
		t.Fatal("undo failed")
	}
	v.syncValues()
	if r.entry.Text != before {
		t.Fatalf("entry = %q, want %q", r.entry.Text, before)
	}
}

func TestView_ImportRepopulates(t *testing.T) {
	v, d := newTestView(t)
	path := filepath.Join(t.TempDir(), "p.json")
	if err := os.WriteFile(path, []byte(`{"layout": {"cols": "5"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	v.importFrom(path)
	if got, _ := d.Form().Value("layout", "cols"); got != "5" {
		t.Fatalf("form cols = %q", got)
	}
	if v.row("layout", "cols").entry.Text != "5" {
		t.Fatalf("widget not synced: %q", v.row("layout", "cols").entry.Text)
	}
}

func TestExtensionFilter(t *testing.T) {
	if extensionFilter("*.kicad_pcb") == nil {
		t.Fatal("expected filter for *.kicad_pcb")
	}
	if extensionFilter("") != nil || extensionFilter("*") != nil {
		t.Fatal("expected no filter")
	}
}
