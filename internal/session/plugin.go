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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	applog "gopanelize/internal/log"
	"gopanelize/internal/preset"
)

// ConfirmReplace is asked before a non-empty board is replaced by a panel.
const ConfirmReplace = "The currently opened board is not empty and it will be " +
	"replaced by the panel. Do you wish to continue?\n\n" +
	"Note that the panelization tool is supposed to be invoked from a stand-alone pcbnew instance."

// Plugin is the long-lived entry point. It remembers the last configuration and
// whether the live board already holds a panel.
type Plugin struct {
	opts Options
	// StatePath persists the remembered preset between processes when set.
	StatePath string

	preset preset.Preset
	dirty  bool
	log    *slog.Logger
}

func NewPlugin(opts Options) *Plugin {
	return &Plugin{opts: opts, preset: preset.Preset{}, log: applog.WithComponent("plugin")}
}

// Preset returns a copy of the remembered configuration.
func (p *Plugin) Preset() preset.Preset { return preset.Copy(p.preset) }

// Dirty reports whether a panel has been placed into the live board in this session.
func (p *Plugin) Dirty() bool { return p.dirty }

// LoadState reads the remembered preset from StatePath. A missing file is not an error.
func (p *Plugin) LoadState() error {
	if p.StatePath == "" {
		return nil
	}
	st, err := preset.ReadFile(p.StatePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	p.preset = st
	return nil
}

// Run asks for confirmation when needed, shows the dialog via show and remembers its
// configuration afterwards. show blocks until the dialog is closed.
func (p *Plugin) Run(show func(*Dialog) error) (err error) {
	ui := p.opts.UI
	defer func() {
		if err != nil {
			ui.Error("Cannot perform: " + err.Error())
		}
	}()
	if !p.dirty && !p.opts.Host.Board().IsEmpty() {
		if !ui.Confirm(ConfirmReplace) {
			p.log.Info("panelization declined")
			return nil
		}
	}
	d := NewDialog(p.opts, p.preset)
	showErr := show(d)
	p.preset = d.CollectPreset(true)
	p.dirty = p.dirty || d.Dirty()
	if p.StatePath != "" {
		if werr := preset.WriteFile(p.StatePath, p.preset); werr != nil {
			p.log.Warn("remember preset failed", slog.String("path", p.StatePath), slog.Any("err", werr))
		}
	}
	if showErr != nil {
		return fmt.Errorf("dialog: %w", showErr)
	}
	return nil
}
