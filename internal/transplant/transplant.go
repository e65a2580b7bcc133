/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package transplant replaces the content of a live board with the content of another
// board while keeping the live board object itself.
//
// It must run on the goroutine that owns the live board. A failure midway leaves the
// target partially cleared; nothing is rolled back.
package transplant

import (
	"fmt"
	"log/slog"

	"gopanelize/internal/board"
	applog "gopanelize/internal/log"
)

// Phase labels reported while transplanting.
const (
	PhaseClearing  = "Clearing the old board in UI"
	PhaseRendering = "Rendering the new board in UI"
)

// ZoneSettingsMaxMajor is the first host major version that no longer takes zone
// settings from the panel.
const ZoneSettingsMaxMajor = 8

// Stats counts what was moved.
type Stats struct {
	Removed int
	Added   int
	Nets    int
}

// Transplant copies everything from source into target. onPhase is called once per
// removed or added element and may be nil.
func Transplant(source, target board.Document, hostMajor int, onPhase func(string)) (Stats, error) {
	var st Stats
	phase := func(p string) {
		if onPhase != nil {
			onPhase(p)
		}
	}
	l := applog.WithOperation(applog.WithComponent("transplant"), "transplant")

	phase(PhaseClearing)
	target.ClearProject()

	for _, items := range [][]board.Item{target.Drawings(), target.Footprints(), target.Tracks(), target.Zones()} {
		for _, it := range items {
			phase(PhaseClearing)
			if err := target.Remove(it); err != nil {
				return st, fmt.Errorf("remove %s: %w", it.Kind(), err)
			}
			st.Removed++
		}
	}
	for _, n := range target.Nets() {
		if err := target.RemoveNet(n.Code); err != nil {
			return st, fmt.Errorf("remove net %d: %w", n.Code, err)
		}
	}

	target.SetProperties(source.Properties())
	target.SetPageSettings(source.PageSettings())
	target.SetTitleBlock(source.TitleBlock())
	if hostMajor < ZoneSettingsMaxMajor {
		target.SetZoneSettings(source.ZoneSettings())
	}

	for _, n := range source.Nets() {
		if err := target.AddNet(n); err != nil {
			return st, fmt.Errorf("add net %d %q: %w", n.Code, n.Name, err)
		}
		st.Nets++
	}

	for _, items := range [][]board.Item{source.Drawings(), source.Footprints(), source.Tracks(), source.Zones()} {
		for _, it := range items {
			phase(PhaseRendering)
			if err := target.Add(it.Clone()); err != nil {
				return st, fmt.Errorf("add %s: %w", it.Kind(), err)
			}
			st.Added++
		}
	}

	target.SetDesignSettings(source.DesignSettings())

	l.Debug("board transplanted",
		slog.Int("removed", st.Removed),
		slog.Int("added", st.Added),
		slog.Int("nets", st.Nets),
		slog.Int("host_major", hostMajor))
	return st, nil
}
