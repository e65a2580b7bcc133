/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package boardtest builds sample boards for tests.
package boardtest

import (
	"gopanelize/internal/board"
	"gopanelize/internal/board/memboard"
	"gopanelize/internal/geom"
)

func mm(v float64) int64 { return geom.FromMM(v) }

// Sample returns a small two-net board: a 20x10 mm outline, two footprints, one
// track and one zone. tag makes titles and references distinguishable.
func Sample(tag string) *memboard.Board {
	b := memboard.New()
	gnd := board.Net{Code: 1, Name: "GND"}
	vcc := board.Net{Code: 2, Name: tag + "VCC"}

	for _, seg := range [][2]geom.Point{
		{geom.Pt(0, 0), geom.Pt(mm(20), 0)},
		{geom.Pt(mm(20), 0), geom.Pt(mm(20), mm(10))},
		{geom.Pt(mm(20), mm(10)), geom.Pt(0, mm(10))},
		{geom.Pt(0, mm(10)), geom.Pt(0, 0)},
	} {
		mustAdd(b, &board.Drawing{Shape: board.ShapeLine, Layer: board.LayerEdgeCuts, Start: seg[0], End: seg[1], Width: mm(0.1)})
	}
	mustAdd(b, &board.Footprint{
		Reference: tag + "R1", Value: "10k", Layer: board.LayerFCu,
		Position:  geom.Pt(mm(5), mm(5)),
		Courtyard: geom.Rect{X: -mm(1), Y: -mm(0.5), Width: mm(2), Height: mm(1)},
		Pads: []board.Pad{
			{Number: "1", Shape: geom.Rect{X: -mm(1), Y: -mm(0.3), Width: mm(0.6), Height: mm(0.6)}, Net: vcc},
			{Number: "2", Shape: geom.Rect{X: mm(0.4), Y: -mm(0.3), Width: mm(0.6), Height: mm(0.6)}, Net: gnd},
		},
	})
	mustAdd(b, &board.Footprint{
		Reference: tag + "J1", Layer: board.LayerFCu,
		Position:  geom.Pt(mm(15), mm(5)),
		Courtyard: geom.Rect{X: -mm(2), Y: -mm(2), Width: mm(4), Height: mm(4)},
	})
	mustAdd(b, &board.Track{Layer: board.LayerFCu, Start: geom.Pt(mm(4), mm(5)), End: geom.Pt(mm(14), mm(5)), Width: mm(0.25), Net: vcc})
	mustAdd(b, &board.Zone{Layer: board.LayerBCu, Outline: geom.Rect{X: mm(1), Y: mm(1), Width: mm(18), Height: mm(8)}, Net: gnd})

	b.SetProperties(map[string]string{"tag": tag})
	b.SetPageSettings(board.PageSettings{Size: "A4"})
	b.SetTitleBlock(board.TitleBlock{Title: tag + " board", Revision: "A", Comments: []string{"sample"}})
	b.SetZoneSettings(board.ZoneSettings{Clearance: mm(0.3), MinThickness: mm(0.2)})
	b.SetDesignSettings(board.DesignSettings{
		MinTrackWidth: mm(0.15), MinClearance: mm(0.15), CopperLayers: 2,
		NetClasses: []board.NetClass{{Name: "Default", Clearance: mm(0.2), TrackWidth: mm(0.25)}},
		Rules:      map[string]string{"tag": tag},
	})
	b.SetProject(map[string]string{"project": tag})
	return b
}

func mustAdd(b *memboard.Board, it board.Item) {
	if err := b.Add(it); err != nil {
		panic(err)
	}
}

// Counts returns drawing, footprint, track, zone and net counts.
func Counts(d board.Document) [5]int {
	return [5]int{len(d.Drawings()), len(d.Footprints()), len(d.Tracks()), len(d.Zones()), len(d.Nets())}
}
