/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package annotate marks a live board as an in-memory preview of a panel saved elsewhere.
package annotate

import (
	"gopanelize/internal/board"
	"gopanelize/internal/geom"
)

// Marker geometry.
var (
	Offset    = geom.FromMM(2)
	TextSize  = geom.FromMM(3)
	Thickness = geom.FromMM(0.4)
)

// Text returns the marker text for a panel saved at path.
func Text(path string) string { return "PREVIEW ONLY. PANEL SAVED IN " + path }

// Annotate adds a text below the board's bounding box pointing at panelPath.
// An empty board gets the marker below the origin.
func Annotate(target board.Document, panelPath string) (*board.Drawing, error) {
	bbox, err := target.BoundingBox()
	if err != nil {
		bbox = geom.Rect{}
	}
	d := &board.Drawing{
		Shape:     board.ShapeText,
		Layer:     board.LayerMargin,
		Start:     geom.Pt(bbox.X+bbox.Width/2, bbox.Bottom()+Offset),
		Text:      Text(panelPath),
		TextSize:  TextSize,
		Thickness: Thickness,
		HJustify:  board.JustifyCenter,
		VJustify:  board.JustifyTop,
	}
	if err := target.Add(d); err != nil {
		return nil, err
	}
	return d, nil
}
