/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package memboard is an in-memory board.Document persisted as JSON.
// It stands in for the CAD host in headless previews, the built-in grid engine and tests.
package memboard

import (
	"fmt"
	"sort"

	"gopanelize/internal/board"
	"gopanelize/internal/geom"
)

// Board is an in-memory board. Like the host model it mirrors, it is not safe for concurrent use.
type Board struct {
	fileName string

	properties map[string]string
	project    map[string]string
	page       board.PageSettings
	title      board.TitleBlock
	zone       board.ZoneSettings
	design     board.DesignSettings

	nets       map[int]board.Net
	drawings   []board.Item
	footprints []board.Item
	tracks     []board.Item
	zones      []board.Item
}

var _ board.Document = (*Board)(nil)

// New returns an empty, unsaved board.
func New() *Board {
	return &Board{
		properties: map[string]string{},
		project:    map[string]string{},
		page:       board.PageSettings{Size: "A4"},
		nets:       map[int]board.Net{},
	}
}

func (b *Board) FileName() string { return b.fileName }

// SetFileName records the path the board is associated with.
func (b *Board) SetFileName(path string) { b.fileName = path }

func (b *Board) IsEmpty() bool {
	return len(b.drawings) == 0 && len(b.footprints) == 0 && len(b.tracks) == 0 && len(b.zones) == 0
}

func (b *Board) Drawings() []board.Item   { return append([]board.Item(nil), b.drawings...) }
func (b *Board) Footprints() []board.Item { return append([]board.Item(nil), b.footprints...) }
func (b *Board) Tracks() []board.Item     { return append([]board.Item(nil), b.tracks...) }
func (b *Board) Zones() []board.Item      { return append([]board.Item(nil), b.zones...) }

// Nets returns the net table ordered by net code.
func (b *Board) Nets() []board.Net {
	out := make([]board.Net, 0, len(b.nets))
	for _, n := range b.nets {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (b *Board) Add(it board.Item) error {
	if it == nil {
		return fmt.Errorf("add: nil item")
	}
	switch it.Kind() {
	case board.KindDrawing:
		b.drawings = append(b.drawings, it)
	case board.KindFootprint:
		b.footprints = append(b.footprints, it)
	case board.KindTrack:
		b.tracks = append(b.tracks, it)
	case board.KindZone:
		b.zones = append(b.zones, it)
	default:
		return fmt.Errorf("add: unsupported item kind %v", it.Kind())
	}
	for _, n := range it.NetRefs() {
		if _, ok := b.nets[n.Code]; !ok {
			b.nets[n.Code] = n
		}
	}
	return nil
}

func (b *Board) Remove(it board.Item) error {
	if it == nil {
		return board.ErrNotFound
	}
	var list *[]board.Item
	switch it.Kind() {
	case board.KindDrawing:
		list = &b.drawings
	case board.KindFootprint:
		list = &b.footprints
	case board.KindTrack:
		list = &b.tracks
	case board.KindZone:
		list = &b.zones
	default:
		return board.ErrNotFound
	}
	for i, x := range *list {
		if x == it {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return nil
		}
	}
	return board.ErrNotFound
}

func (b *Board) AddNet(n board.Net) error {
	if existing, ok := b.nets[n.Code]; ok && existing.Name != n.Name {
		return fmt.Errorf("net code %d already used by %q", n.Code, existing.Name)
	}
	b.nets[n.Code] = n
	return nil
}

func (b *Board) RemoveNet(code int) error {
	if _, ok := b.nets[code]; !ok {
		return board.ErrNotFound
	}
	delete(b.nets, code)
	return nil
}

func (b *Board) ClearProject() { b.project = map[string]string{} }

// Project returns a copy of the project-level settings.
func (b *Board) Project() map[string]string { return copyMap(b.project) }

// SetProject replaces the project-level settings.
func (b *Board) SetProject(p map[string]string) { b.project = copyMap(p) }

func (b *Board) Properties() map[string]string     { return copyMap(b.properties) }
func (b *Board) SetProperties(p map[string]string) { b.properties = copyMap(p) }

func (b *Board) PageSettings() board.PageSettings     { return b.page }
func (b *Board) SetPageSettings(p board.PageSettings) { b.page = p }

func (b *Board) TitleBlock() board.TitleBlock     { return b.title.Clone() }
func (b *Board) SetTitleBlock(t board.TitleBlock) { b.title = t.Clone() }

func (b *Board) ZoneSettings() board.ZoneSettings     { return b.zone }
func (b *Board) SetZoneSettings(z board.ZoneSettings) { b.zone = z }

func (b *Board) DesignSettings() board.DesignSettings     { return b.design.Clone() }
func (b *Board) SetDesignSettings(d board.DesignSettings) { b.design = d.Clone() }

func (b *Board) BoundingBox() (geom.Rect, error) {
	var (
		box   geom.Rect
		found bool
	)
	for _, list := range [][]board.Item{b.drawings, b.footprints, b.tracks, b.zones} {
		for _, it := range list {
			if !found {
				box, found = it.BBox(), true
				continue
			}
			box = box.Union(it.BBox())
		}
	}
	if !found {
		return geom.Rect{}, board.ErrEmpty
	}
	return box, nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
