/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package board describes the host document model as consumed by the panelizer.
//
// The host model is single-threaded and not safe for concurrent use. Nothing in this
// package synchronises access; callers confine every Document to one goroutine at a time.
package board

import (
	"errors"

	"gopanelize/internal/geom"
)

var (
	// ErrEmpty is returned by BoundingBox when a document has no geometry.
	ErrEmpty = errors.New("board is empty")
	// ErrNotFound is returned when removing an element the document does not own.
	ErrNotFound = errors.New("element not found in board")
)

// Kind classifies board elements.
type Kind int

const (
	KindDrawing Kind = iota
	KindFootprint
	KindTrack
	KindZone
)

func (k Kind) String() string {
	switch k {
	case KindDrawing:
		return "drawing"
	case KindFootprint:
		return "footprint"
	case KindTrack:
		return "track"
	case KindZone:
		return "zone"
	default:
		return "unknown"
	}
}

// Item is a single board element.
type Item interface {
	Kind() Kind
	// BBox returns the element's extent.
	BBox() geom.Rect
	// Clone returns a deep copy that shares no mutable state with the receiver.
	Clone() Item
	// NetRefs lists the nets the element is connected to.
	NetRefs() []Net
}

// Net is one entry of the net table.
type Net struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// PageSettings describes the drawing sheet.
type PageSettings struct {
	Size     string `json:"size"`
	Width    int64  `json:"width,omitempty"`
	Height   int64  `json:"height,omitempty"`
	Portrait bool   `json:"portrait,omitempty"`
}

// TitleBlock is the sheet title block.
type TitleBlock struct {
	Title    string   `json:"title,omitempty"`
	Date     string   `json:"date,omitempty"`
	Revision string   `json:"revision,omitempty"`
	Company  string   `json:"company,omitempty"`
	Comments []string `json:"comments,omitempty"`
}

// Clone returns a deep copy.
func (t TitleBlock) Clone() TitleBlock {
	t.Comments = append([]string(nil), t.Comments...)
	return t
}

// ZoneSettings holds board-wide zone defaults.
type ZoneSettings struct {
	Clearance    int64  `json:"clearance,omitempty"`
	MinThickness int64  `json:"minThickness,omitempty"`
	FillMode     string `json:"fillMode,omitempty"`
}

// NetClass is a named group of routing constraints.
type NetClass struct {
	Name       string `json:"name"`
	Clearance  int64  `json:"clearance"`
	TrackWidth int64  `json:"trackWidth"`
}

// DesignSettings holds the design rules of a board.
type DesignSettings struct {
	MinTrackWidth  int64             `json:"minTrackWidth,omitempty"`
	MinClearance   int64             `json:"minClearance,omitempty"`
	MinViaDiameter int64             `json:"minViaDiameter,omitempty"`
	CopperLayers   int               `json:"copperLayers,omitempty"`
	NetClasses     []NetClass        `json:"netClasses,omitempty"`
	Rules          map[string]string `json:"rules,omitempty"`
}

// Clone returns a deep copy.
func (d DesignSettings) Clone() DesignSettings {
	d.NetClasses = append([]NetClass(nil), d.NetClasses...)
	if d.Rules != nil {
		rules := make(map[string]string, len(d.Rules))
		for k, v := range d.Rules {
			rules[k] = v
		}
		d.Rules = rules
	}
	return d
}

// Document is a board as exposed by the host.
type Document interface {
	// FileName is the path the document was loaded from; empty for unsaved boards.
	FileName() string
	IsEmpty() bool

	Drawings() []Item
	Footprints() []Item
	Tracks() []Item
	Zones() []Item
	Nets() []Net

	// Add inserts an element and registers the nets it references.
	Add(Item) error
	Remove(Item) error
	AddNet(Net) error
	RemoveNet(code int) error

	// ClearProject detaches project-level settings.
	ClearProject()

	Properties() map[string]string
	SetProperties(map[string]string)
	PageSettings() PageSettings
	SetPageSettings(PageSettings)
	TitleBlock() TitleBlock
	SetTitleBlock(TitleBlock)
	ZoneSettings() ZoneSettings
	SetZoneSettings(ZoneSettings)
	DesignSettings() DesignSettings
	// SetDesignSettings stores an independent copy of d.
	SetDesignSettings(d DesignSettings)

	// BoundingBox returns the union of all element extents or ErrEmpty.
	BoundingBox() (geom.Rect, error)
}

// Loader opens a document from disk. Implementations must return a fresh instance
// that shares nothing with any document already open in the host.
type Loader interface {
	LoadBoard(path string) (Document, error)
}

// Host is the running CAD session.
type Host interface {
	Loader
	// Board returns the live document. Its identity never changes for the lifetime of the host.
	Board() Document
	// Refresh forces a visual refresh of the live document.
	Refresh()
	// MajorVersion is the host's major version number.
	MajorVersion() int
}
