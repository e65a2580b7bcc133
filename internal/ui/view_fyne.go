//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"gopanelize/internal/command"
	"gopanelize/internal/form"
	applog "gopanelize/internal/log"
	"gopanelize/internal/session"
)

// desktopUI implements session.UI on a Fyne window. Its methods are called from the
// controller goroutine and marshal onto the UI thread.
type desktopUI struct {
	win   fyne.Window
	prog  *dialog.CustomDialog
	phase *widget.Label
}

func newDesktopUI(w fyne.Window) *desktopUI {
	return &desktopUI{win: w, phase: widget.NewLabel("")}
}

func (u *desktopUI) Pulse(msg string) {
	fyne.Do(func() { u.phase.SetText(msg) })
}

func (u *desktopUI) Refresh() {
	fyne.Do(func() {
		if c := u.win.Content(); c != nil {
			c.Refresh()
		}
	})
}

func (u *desktopUI) ShowProgress(title string) {
	fyne.Do(func() {
		if u.prog != nil {
			u.prog.Hide()
		}
		body := container.NewVBox(u.phase, widget.NewProgressBarInfinite())
		u.prog = dialog.NewCustomWithoutButtons(title, body, u.win)
		u.prog.Show()
	})
}

func (u *desktopUI) HideProgress() {
	fyne.Do(func() {
		if u.prog != nil {
			u.prog.Hide()
			u.prog = nil
		}
	})
}

// Pump is a no-op: the Fyne event loop runs on its own goroutine.
func (u *desktopUI) Pump() {}

func (u *desktopUI) Error(msg string) {
	fyne.Do(func() { dialog.ShowError(errors.New(msg), u.win) })
}

func (u *desktopUI) Info(msg string) {
	fyne.Do(func() { dialog.ShowInformation("Panelization", msg, u.win) })
}

// Confirm must not be called from the UI thread.
func (u *desktopUI) Confirm(msg string) bool {
	answer := make(chan bool, 1)
	fyne.Do(func() {
		dialog.ShowConfirm("Confirm", msg, func(ok bool) { answer <- ok }, u.win)
	})
	return <-answer
}

type optionRow struct {
	section string
	ctl     form.Control
	box     *fyne.Container
	entry   *widget.Entry
	sel     *widget.Select
}

func (r *optionRow) sync() {
	if r.sel != nil {
		r.sel.SetSelected(r.ctl.Value())
		return
	}
	r.entry.SetText(r.ctl.Value())
}

// dialogView renders a session.Dialog: one card per section, the JSON and command
// outputs and the action bar.
type dialogView struct {
	d    *session.Dialog
	win  fyne.Window
	ui   *desktopUI
	log  *slog.Logger
	rows []*optionRow

	// syncing suppresses widget callbacks while values are pushed into widgets.
	syncing bool

	jsonOut     *widget.Entry
	cmdOut      *widget.Entry
	dialect     *widget.RadioGroup
	panelizeBtn *widget.Button
	undoBtn     *widget.Button
	redoBtn     *widget.Button
}

func newDialogView(d *session.Dialog, w fyne.Window, u *desktopUI) *dialogView {
	v := &dialogView{d: d, win: w, ui: u, log: applog.WithComponent("ui")}
	v.jsonOut = widget.NewMultiLineEntry()
	v.jsonOut.Wrapping = fyne.TextWrapWord
	v.cmdOut = widget.NewMultiLineEntry()
	v.cmdOut.Wrapping = fyne.TextWrapWord
	d.OnOutputs = v.setOutputs
	d.OnRelayout = v.applyVisibility
	return v
}

func (v *dialogView) setOutputs(j, c string) {
	v.jsonOut.SetText(j)
	v.cmdOut.SetText(c)
}

func (v *dialogView) content() fyne.CanvasObject {
	sections := container.NewVBox()
	for _, sf := range v.d.Form().Sections() {
		body := container.NewVBox()
		for _, ctl := range sf.Controls() {
			row := v.newRow(sf.Key(), ctl)
			v.rows = append(v.rows, row)
			body.Add(row.box)
		}
		sections.Add(widget.NewCard(sf.Title(), "", body))
	}
	v.syncValues()
	v.applyVisibility()

	dialectNames := []string{command.POSIX.String(), command.Windows.String()}
	v.dialect = widget.NewRadioGroup(dialectNames, func(s string) {
		dl, err := command.ParseDialect(s)
		if err != nil {
			return
		}
		v.d.SetDialect(dl)
	})
	v.dialect.Horizontal = true
	v.dialect.SetSelected(v.d.Dialect().String())

	j, c := v.d.Outputs()
	v.setOutputs(j, c)

	v.undoBtn = widget.NewButton("Undo", func() {
		if v.d.Undo() {
			v.syncValues()
		}
	})
	v.redoBtn = widget.NewButton("Redo", func() {
		if v.d.Redo() {
			v.syncValues()
		}
	})
	exportBtn := widget.NewButton("Export configuration", v.exportConfig)
	importBtn := widget.NewButton("Import configuration", v.importConfig)
	copyBtn := widget.NewButton("Copy command", func() {
		_, cmd := v.d.Outputs()
		v.win.Clipboard().SetContent(cmd)
	})
	v.panelizeBtn = widget.NewButton("Panelize", v.startPanelize)
	v.panelizeBtn.Importance = widget.HighImportance

	outputs := container.NewVBox(
		widget.NewLabel("JSON configuration:"), v.jsonOut,
		widget.NewLabel("KiKit CLI command:"), v.cmdOut,
		v.dialect,
	)
	actions := container.NewHBox(v.undoBtn, v.redoBtn, exportBtn, importBtn, copyBtn, v.panelizeBtn)
	split := container.NewHSplit(container.NewVScroll(sections), container.NewVScroll(outputs))
	split.Offset = 0.55
	return container.NewBorder(nil, actions, nil, nil, split)
}

func (v *dialogView) newRow(section string, ctl form.Control) *optionRow {
	opt := ctl.Option()
	row := &optionRow{section: section, ctl: ctl}
	label := widget.NewLabel(opt.Name)
	var input fyne.CanvasObject
	if choices := form.Choices(ctl); len(choices) > 0 {
		row.sel = widget.NewSelect(choices, func(s string) { v.edit(row, s) })
		input = row.sel
	} else {
		row.entry = widget.NewEntry()
		row.entry.OnChanged = func(s string) { v.edit(row, s) }
		input = row.entry
		if isPath, output := form.IsPath(ctl); isPath {
			browse := widget.NewButton("…", func() { v.browse(row, output) })
			input = container.NewBorder(nil, nil, nil, browse, row.entry)
		}
	}
	var hint fyne.CanvasObject
	if opt.Description != "" && opt.Description != opt.Name {
		h := widget.NewLabel(opt.Description)
		h.Wrapping = fyne.TextWrapWord
		h.TextStyle = fyne.TextStyle{Italic: true}
		hint = h
	}
	row.box = container.NewBorder(nil, hint, label, nil, input)
	return row
}

func (v *dialogView) edit(row *optionRow, value string) {
	if v.syncing {
		return
	}
	if err := v.d.Edit(row.section, row.ctl.Option().Name, value); err != nil {
		v.log.Warn("edit rejected", slog.Any("err", err))
	}
}

func (v *dialogView) syncValues() {
	v.syncing = true
	defer func() { v.syncing = false }()
	for _, r := range v.rows {
		r.sync()
	}
}

func (v *dialogView) applyVisibility() {
	for _, r := range v.rows {
		if r.ctl.Visible() {
			r.box.Show()
		} else {
			r.box.Hide()
		}
	}
}

func extensionFilter(nameFilter string) fstorage.FileFilter {
	ext := filepath.Ext(strings.TrimSpace(nameFilter))
	if ext == "" || strings.Contains(ext, "*") {
		return nil
	}
	return fstorage.NewExtensionFileFilter([]string{ext})
}

func (v *dialogView) browse(row *optionRow, output bool) {
	filter := extensionFilter(row.ctl.Option().NameFilter)
	if output {
		fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			row.entry.SetText(path)
		}, v.win)
		if filter != nil {
			fd.SetFilter(filter)
		}
		fd.Show()
		return
	}
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		row.entry.SetText(path)
	}, v.win)
	if filter != nil {
		fd.SetFilter(filter)
	}
	fd.Show()
}

func (v *dialogView) exportConfig() {
	fd := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		path := wc.URI().Path()
		_ = wc.Close()
		if err := v.d.Export(path); err != nil {
			dialog.ShowError(err, v.win)
		}
	}, v.win)
	fd.SetFileName("panel.json")
	fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	fd.Show()
}

func (v *dialogView) importConfig() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		v.importFrom(path)
	}, v.win)
	fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	fd.Show()
}

func (v *dialogView) importFrom(path string) {
	if err := v.d.Import(path); err != nil {
		dialog.ShowError(err, v.win)
		return
	}
	v.syncValues()
	v.applyVisibility()
}

func (v *dialogView) startPanelize() {
	v.panelizeBtn.Disable()
	panelize(v.d, v.d.Request(), v.panelizeBtn.Enable)
}

// panelize runs the controller off the UI thread over a form snapshot taken on it.
// Every UI call the controller makes is marshalled back.
func panelize(d *session.Dialog, req session.Request, done func()) {
	go func() {
		defer fyne.Do(done)
		_ = d.PanelizeRequest(context.Background(), req)
	}()
}
