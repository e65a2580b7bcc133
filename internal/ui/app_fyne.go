//go:build fyne && cgo

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
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	applog "gopanelize/internal/log"
	"gopanelize/internal/session"
)

// Run shows the panelization dialog for the board held by opts.Host and blocks until
// the window is closed. opts.UI is replaced by the desktop implementation.
func Run(opts session.Options, statePath string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	fyneApp := app.NewWithID("gopanelize")
	w := fyneApp.NewWindow(session.Title())
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 900)
	winH := prefs.IntWithFallback("window.height", 700)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))
	w.SetContent(container.NewCenter(widget.NewLabel("Loading…")))

	dui := newDesktopUI(w)
	opts.UI = dui
	plugin := session.NewPlugin(opts)
	plugin.StatePath = statePath
	if err := plugin.LoadState(); err != nil {
		l.Warn("remembered preset unreadable", slog.String("path", statePath), slog.Any("err", err))
	}

	closed := make(chan struct{})
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		close(closed)
	})

	errc := make(chan error, 1)
	go func() {
		err := plugin.Run(func(d *session.Dialog) error {
			fyne.DoAndWait(func() {
				v := newDialogView(d, w, dui)
				w.SetContent(v.content())
			})
			<-closed
			return nil
		})
		select {
		case <-closed:
		default:
			// declined before the dialog was shown
			fyne.Do(w.Close)
		}
		errc <- err
		fyne.Do(fyneApp.Quit)
	}()

	w.ShowAndRun()
	err := <-errc
	l.Info("UI closed", slog.Bool("panel_placed", plugin.Dirty()))
	return err
}
