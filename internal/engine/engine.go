/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package engine runs panelization. The engine only sees file paths and a preset;
// it reads the input board and writes the panel plus its companion project files.
package engine

import (
	"context"
	"fmt"
	"strings"

	"gopanelize/internal/preset"
	"gopanelize/internal/schema"
)

// Engine produces a panel from a board file.
type Engine interface {
	// Panelize reads input and writes output. onOutput receives progress lines and may be nil.
	Panelize(ctx context.Context, input, output string, cfg preset.Preset, onOutput func(string)) error
}

// Func adapts a function to Engine.
type Func func(ctx context.Context, input, output string, cfg preset.Preset, onOutput func(string)) error

func (f Func) Panelize(ctx context.Context, input, output string, cfg preset.Preset, onOutput func(string)) error {
	return f(ctx, input, output, cfg, onOutput)
}

// New returns the engine named kind: "exec" runs command, "grid" is built in.
func New(kind, command string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "exec":
		return &Exec{Command: command}, nil
	case "grid":
		return &Grid{}, nil
	}
	return nil, fmt.Errorf("unknown engine %q (want exec or grid)", kind)
}

// EngineDiff returns the overlay of cfg over :default restricted to engine sections.
func EngineDiff(cfg preset.Preset) preset.Preset {
	d := preset.Diff(preset.MustDefault(), cfg)
	delete(d, schema.InputSection)
	delete(d, schema.OutputSection)
	return d
}

// tail keeps the last n lines written to it.
type tail struct {
	n     int
	lines []string
}

func (t *tail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *tail) String() string { return strings.Join(t.lines, "\n") }
