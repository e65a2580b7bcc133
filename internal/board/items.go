/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package board

import "gopanelize/internal/geom"

// Common layer names.
const (
	LayerEdgeCuts = "Edge.Cuts"
	LayerMargin   = "Margin"
	LayerFCu      = "F.Cu"
	LayerBCu      = "B.Cu"
	LayerFSilk    = "F.SilkS"
)

// Drawing shapes.
const (
	ShapeLine = "line"
	ShapeRect = "rect"
	ShapeText = "text"
)

// Text justification values.
const (
	JustifyLeft   = "left"
	JustifyCenter = "center"
	JustifyRight  = "right"
	JustifyTop    = "top"
	JustifyBottom = "bottom"
)

// Drawing is a graphic element: a line, a rectangle or a text.
type Drawing struct {
	Shape string     `json:"shape"`
	Layer string     `json:"layer"`
	Start geom.Point `json:"start"`
	End   geom.Point `json:"end,omitempty"`
	Width int64      `json:"width,omitempty"`

	// Text fields; Start is the anchor position.
	Text      string `json:"text,omitempty"`
	TextSize  int64  `json:"textSize,omitempty"`
	Thickness int64  `json:"thickness,omitempty"`
	HJustify  string `json:"hJustify,omitempty"`
	VJustify  string `json:"vJustify,omitempty"`
}

func (d *Drawing) Kind() Kind     { return KindDrawing }
func (d *Drawing) NetRefs() []Net { return nil }

func (d *Drawing) Clone() Item {
	c := *d
	return &c
}

func (d *Drawing) BBox() geom.Rect {
	if d.Shape != ShapeText {
		return geom.NewRect(d.Start, d.End).Inflate(d.Width / 2)
	}
	// Glyph advance is approximated at 0.6 of the text height.
	w := int64(len([]rune(d.Text))) * d.TextSize * 6 / 10
	h := d.TextSize
	x := d.Start.X
	switch d.HJustify {
	case JustifyCenter:
		x -= w / 2
	case JustifyRight:
		x -= w
	}
	y := d.Start.Y
	switch d.VJustify {
	case JustifyBottom:
		y -= h
	case JustifyTop:
	default:
		y -= h / 2
	}
	return geom.Rect{X: x, Y: y, Width: w, Height: h}
}

// Pad is a footprint pad, positioned relative to its footprint.
type Pad struct {
	Number string    `json:"number"`
	Shape  geom.Rect `json:"shape"`
	Net    Net       `json:"net"`
}

// Footprint is a placed component.
type Footprint struct {
	Reference string     `json:"reference"`
	Value     string     `json:"value,omitempty"`
	Layer     string     `json:"layer"`
	Position  geom.Point `json:"position"`
	Courtyard geom.Rect  `json:"courtyard"`
	Pads      []Pad      `json:"pads,omitempty"`
}

func (f *Footprint) Kind() Kind { return KindFootprint }

func (f *Footprint) Clone() Item {
	c := *f
	c.Pads = append([]Pad(nil), f.Pads...)
	return &c
}

func (f *Footprint) BBox() geom.Rect {
	r := f.Courtyard.Translate(f.Position)
	for _, p := range f.Pads {
		r = r.Union(p.Shape.Translate(f.Position))
	}
	return r
}

func (f *Footprint) NetRefs() []Net {
	var nets []Net
	for _, p := range f.Pads {
		if p.Net.Code != 0 {
			nets = append(nets, p.Net)
		}
	}
	return nets
}

// Track is a copper segment.
type Track struct {
	Layer string     `json:"layer"`
	Start geom.Point `json:"start"`
	End   geom.Point `json:"end"`
	Width int64      `json:"width"`
	Net   Net        `json:"net"`
}

func (t *Track) Kind() Kind { return KindTrack }

func (t *Track) Clone() Item {
	c := *t
	return &c
}

func (t *Track) BBox() geom.Rect { return geom.NewRect(t.Start, t.End).Inflate(t.Width / 2) }

func (t *Track) NetRefs() []Net {
	if t.Net.Code == 0 {
		return nil
	}
	return []Net{t.Net}
}

// Zone is a filled copper area.
type Zone struct {
	Layer    string    `json:"layer"`
	Outline  geom.Rect `json:"outline"`
	Net      Net       `json:"net"`
	Priority int       `json:"priority,omitempty"`
}

func (z *Zone) Kind() Kind { return KindZone }

func (z *Zone) Clone() Item {
	c := *z
	return &c
}

func (z *Zone) BBox() geom.Rect { return z.Outline }

func (z *Zone) NetRefs() []Net {
	if z.Net.Code == 0 {
		return nil
	}
	return []Net{z.Net}
}
