/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package report renders panel thumbnails and PDF job sheets.
package report

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"gopanelize/internal/board"
	"gopanelize/internal/geom"
)

// Counts summarizes a document.
type Counts struct {
	Drawings, Footprints, Tracks, Zones, Nets int
}

func CountsOf(d board.Document) Counts {
	return Counts{
		Drawings:   len(d.Drawings()),
		Footprints: len(d.Footprints()),
		Tracks:     len(d.Tracks()),
		Zones:      len(d.Zones()),
		Nets:       len(d.Nets()),
	}
}

var (
	background = color.RGBA{R: 0x0b, G: 0x1a, B: 0x10, A: 0xff}
	edgeColor  = color.RGBA{R: 0xe8, G: 0xe0, B: 0x40, A: 0xff}
	fpColor    = color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}
	trackColor = color.RGBA{R: 0xc8, G: 0x34, B: 0x34, A: 0xff}
	zoneColor  = color.RGBA{R: 0x34, G: 0x9c, B: 0x5a, A: 0xff}
	textColor  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const (
	margin        = 4
	captionHeight = 16
)

// Thumbnail renders element outlines of d into a w×h image with caption underneath.
// Empty documents yield a blank image with the caption only.
func Thumbnail(d board.Document, w, h int, caption string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	area := image.Rect(margin, margin, w-margin, h-margin-captionHeight)
	if bb, err := d.BoundingBox(); err == nil && area.Dx() > 0 && area.Dy() > 0 {
		v := newViewport(bb, area)
		for _, it := range d.Zones() {
			v.rect(img, it.BBox(), zoneColor)
		}
		for _, it := range d.Tracks() {
			if t, ok := it.(*board.Track); ok {
				v.line(img, t.Start, t.End, trackColor)
			}
		}
		for _, it := range d.Footprints() {
			v.rect(img, it.BBox(), fpColor)
		}
		for _, it := range d.Drawings() {
			dr, ok := it.(*board.Drawing)
			if !ok {
				continue
			}
			switch {
			case dr.Shape == board.ShapeLine && dr.Layer == board.LayerEdgeCuts:
				v.line(img, dr.Start, dr.End, edgeColor)
			case dr.Shape == board.ShapeRect:
				v.rect(img, geom.NewRect(dr.Start, dr.End), edgeColor)
			}
		}
	}
	if caption != "" {
		drawCaption(img, caption, h-margin-3)
	}
	return img
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error { return png.Encode(w, img) }

type viewport struct {
	bb    geom.Rect
	area  image.Rectangle
	scale float64
	offX  int
	offY  int
}

func newViewport(bb geom.Rect, area image.Rectangle) viewport {
	bw, bh := float64(bb.Width), float64(bb.Height)
	if bw <= 0 {
		bw = 1
	}
	if bh <= 0 {
		bh = 1
	}
	sx := float64(area.Dx()-1) / bw
	sy := float64(area.Dy()-1) / bh
	s := min(sx, sy)
	return viewport{
		bb:    bb,
		area:  area,
		scale: s,
		offX:  area.Min.X + (area.Dx()-int(bw*s))/2,
		offY:  area.Min.Y + (area.Dy()-int(bh*s))/2,
	}
}

func (v viewport) px(p geom.Point) image.Point {
	return image.Point{
		X: v.offX + int(float64(p.X-v.bb.X)*v.scale),
		Y: v.offY + int(float64(p.Y-v.bb.Y)*v.scale),
	}
}

func (v viewport) line(img *image.RGBA, a, b geom.Point, c color.Color) {
	p, q := v.px(a), v.px(b)
	dx, dy := abs(q.X-p.X), -abs(q.Y-p.Y)
	sx, sy := sign(q.X-p.X), sign(q.Y-p.Y)
	e := dx + dy
	for {
		if p.In(v.area) {
			img.Set(p.X, p.Y, c)
		}
		if p == q {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

func (v viewport) rect(img *image.RGBA, r geom.Rect, c color.Color) {
	tl := geom.Pt(r.X, r.Y)
	tr := geom.Pt(r.Right(), r.Y)
	br := geom.Pt(r.Right(), r.Bottom())
	bl := geom.Pt(r.X, r.Bottom())
	v.line(img, tl, tr, c)
	v.line(img, tr, br, c)
	v.line(img, br, bl, c)
	v.line(img, bl, tl, c)
}

func drawCaption(img *image.RGBA, s string, baseline int) {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(textColor), Face: basicfont.Face7x13}
	maxW := img.Bounds().Dx() - 2*margin
	for len(s) > 1 && d.MeasureString(s).Ceil() > maxW {
		s = s[:len(s)-1]
	}
	x := (img.Bounds().Dx() - d.MeasureString(s).Ceil()) / 2
	d.Dot = fixed.P(max(x, margin), baseline)
	d.DrawString(s)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
