/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"gopanelize/internal/board"
	"gopanelize/internal/board/memboard"
	"gopanelize/internal/geom"
	applog "gopanelize/internal/log"
	"gopanelize/internal/preset"
	"gopanelize/internal/storage"
)

// Grid is a built-in engine for memboard files. It places rows x cols copies of the
// board, renames nets and references per copy and optionally adds rails or a frame.
// Tabs, cuts and the other fabrication features are left to the external engine.
type Grid struct{}

// Panelize implements Engine.
func (g *Grid) Panelize(ctx context.Context, input, output string, cfg preset.Preset, onOutput func(string)) error {
	say := func(format string, a ...any) {
		if onOutput != nil {
			onOutput(fmt.Sprintf(format, a...))
		}
	}
	l := applog.WithOperation(applog.WithComponent("engine"), "grid")

	p, err := parseGridParams(cfg)
	if err != nil {
		return err
	}
	say("Loading board %s", input)
	src, err := memboard.Load(input)
	if err != nil {
		return err
	}
	bbox, err := src.BoundingBox()
	if err != nil {
		return fmt.Errorf("source board %s: %w", input, err)
	}

	panel := memboard.New()
	panel.SetProperties(src.Properties())
	panel.SetPageSettings(src.PageSettings())
	panel.SetTitleBlock(src.TitleBlock())
	panel.SetZoneSettings(src.ZoneSettings())
	panel.SetDesignSettings(src.DesignSettings())

	stride := 1
	for _, n := range src.Nets() {
		if n.Code >= stride {
			stride = n.Code + 1
		}
	}

	total := p.rows * p.cols
	for r := 0; r < p.rows; r++ {
		for c := 0; c < p.cols; c++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			idx := r*p.cols + c
			say("Placing board %d/%d", idx+1, total)
			off := geom.Pt(
				int64(c)*(bbox.Width+p.hspace)-bbox.X,
				int64(r)*(bbox.Height+p.vspace)-bbox.Y,
			)
			rn := renamer{n: idx + 1, stride: stride, netPattern: p.renameNet, refPattern: p.renameRef}
			for _, items := range [][]board.Item{src.Drawings(), src.Footprints(), src.Tracks(), src.Zones()} {
				for _, it := range items {
					moved, err := place(it, off, rn)
					if err != nil {
						return err
					}
					if err := panel.Add(moved); err != nil {
						return err
					}
				}
			}
		}
	}

	if err := addFraming(panel, p); err != nil {
		return err
	}

	say("Saving panel %s", output)
	if err := panel.Save(output); err != nil {
		return err
	}
	if err := writeCompanions(output, src.Project(), total); err != nil {
		return err
	}
	l.InfoContext(ctx, "panel written", slog.String("output", output), slog.Int("boards", total))
	return nil
}

type gridParams struct {
	layoutType     string
	rows, cols     int
	hspace, vspace int64
	renameNet      string
	renameRef      string
	framing        string
	frameWidth     int64
	frameH, frameV int64
}

func parseGridParams(cfg preset.Preset) (gridParams, error) {
	get := func(sec, opt, def string) string {
		if v, ok := cfg.Get(sec, opt); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	p := gridParams{
		layoutType: strings.ToLower(get("layout", "type", "grid")),
		renameNet:  get("layout", "renamenet", "Board_{n}-{orig}"),
		renameRef:  get("layout", "renameref", "{orig}"),
		framing:    strings.ToLower(get("framing", "type", "none")),
	}
	if p.layoutType != "grid" {
		return p, fmt.Errorf("grid engine: layout type %q is not supported", p.layoutType)
	}
	var err error
	if p.rows, err = strconv.Atoi(get("layout", "rows", "1")); err != nil || p.rows < 1 {
		return p, fmt.Errorf("layout.rows: want a positive integer, got %q", get("layout", "rows", ""))
	}
	if p.cols, err = strconv.Atoi(get("layout", "cols", "1")); err != nil || p.cols < 1 {
		return p, fmt.Errorf("layout.cols: want a positive integer, got %q", get("layout", "cols", ""))
	}
	lengths := []struct {
		sec, opt, def string
		dst           *int64
	}{
		{"layout", "hspace", "0mm", &p.hspace},
		{"layout", "vspace", "0mm", &p.vspace},
		{"framing", "width", "5mm", &p.frameWidth},
		{"framing", "hspace", "2mm", &p.frameH},
		{"framing", "vspace", "2mm", &p.frameV},
	}
	for _, ln := range lengths {
		if *ln.dst, err = ParseLength(get(ln.sec, ln.opt, ln.def)); err != nil {
			return p, fmt.Errorf("%s.%s: %w", ln.sec, ln.opt, err)
		}
	}
	if sp := get("layout", "space", ""); sp != "" {
		v, err := ParseLength(sp)
		if err != nil {
			return p, fmt.Errorf("layout.space: %w", err)
		}
		p.hspace, p.vspace = v, v
	}
	if sp := get("framing", "space", ""); sp != "" {
		v, err := ParseLength(sp)
		if err != nil {
			return p, fmt.Errorf("framing.space: %w", err)
		}
		p.frameH, p.frameV = v, v
	}
	return p, nil
}

// ParseLength converts "2mm", "0.1in", "0.5cm", "40mil" or a bare number of
// millimetres to nanometres.
func ParseLength(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	units := []struct {
		suffix string
		mm     float64
	}{{"mm", 1}, {"cm", 10}, {"mil", 0.0254}, {"in", 25.4}}
	factor := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			s, factor = strings.TrimSpace(strings.TrimSuffix(s, u.suffix)), u.mm
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	return geom.FromMM(v * factor), nil
}

type renamer struct {
	n          int
	stride     int
	netPattern string
	refPattern string
}

func expand(pattern string, n int, orig string) string {
	return strings.NewReplacer("{n}", strconv.Itoa(n), "{orig}", orig).Replace(pattern)
}

func (r renamer) net(n board.Net) board.Net {
	if n.Code == 0 {
		return n
	}
	return board.Net{Code: (r.n-1)*r.stride + n.Code, Name: expand(r.netPattern, r.n, n.Name)}
}

func (r renamer) ref(s string) string { return expand(r.refPattern, r.n, s) }

func place(it board.Item, off geom.Point, rn renamer) (board.Item, error) {
	switch x := it.Clone().(type) {
	case *board.Drawing:
		x.Start, x.End = x.Start.Add(off), x.End.Add(off)
		return x, nil
	case *board.Footprint:
		x.Position = x.Position.Add(off)
		x.Reference = rn.ref(x.Reference)
		for i := range x.Pads {
			x.Pads[i].Net = rn.net(x.Pads[i].Net)
		}
		return x, nil
	case *board.Track:
		x.Start, x.End = x.Start.Add(off), x.End.Add(off)
		x.Net = rn.net(x.Net)
		return x, nil
	case *board.Zone:
		x.Outline = x.Outline.Translate(off)
		x.Net = rn.net(x.Net)
		return x, nil
	default:
		return nil, fmt.Errorf("grid engine: cannot place %T", it)
	}
}

func addFraming(panel *memboard.Board, p gridParams) error {
	if p.framing == "none" {
		return nil
	}
	bbox, err := panel.BoundingBox()
	if err != nil {
		return err
	}
	var rects []geom.Rect
	top := geom.Rect{X: bbox.X, Y: bbox.Y - p.frameV - p.frameWidth, Width: bbox.Width, Height: p.frameWidth}
	bottom := geom.Rect{X: bbox.X, Y: bbox.Bottom() + p.frameV, Width: bbox.Width, Height: p.frameWidth}
	left := geom.Rect{X: bbox.X - p.frameH - p.frameWidth, Y: bbox.Y, Width: p.frameWidth, Height: bbox.Height}
	right := geom.Rect{X: bbox.Right() + p.frameH, Y: bbox.Y, Width: p.frameWidth, Height: bbox.Height}
	switch p.framing {
	case "railstb":
		rects = []geom.Rect{top, bottom}
	case "railslr":
		rects = []geom.Rect{left, right}
	case "frame", "tightframe":
		outer := geom.Rect{
			X: left.X, Y: top.Y,
			Width:  right.Right() - left.X,
			Height: bottom.Bottom() - top.Y,
		}
		rects = []geom.Rect{outer}
	default:
		return fmt.Errorf("grid engine: framing type %q is not supported", p.framing)
	}
	for _, r := range rects {
		for _, seg := range outline(r) {
			d := &board.Drawing{Shape: board.ShapeLine, Layer: board.LayerEdgeCuts, Start: seg[0], End: seg[1], Width: geom.FromMM(0.1)}
			if err := panel.Add(d); err != nil {
				return err
			}
		}
	}
	return nil
}

func outline(r geom.Rect) [][2]geom.Point {
	tl, tr := geom.Pt(r.X, r.Y), geom.Pt(r.Right(), r.Y)
	br, bl := geom.Pt(r.Right(), r.Bottom()), geom.Pt(r.X, r.Bottom())
	return [][2]geom.Point{{tl, tr}, {tr, br}, {br, bl}, {bl, tl}}
}

// writeCompanions writes the .kicad_pro and .kicad_prl files next to the panel.
func writeCompanions(output string, project map[string]string, boards int) error {
	pro := map[string]any{
		"meta":    map[string]any{"filename": storage.ReplaceExt(filepath.Base(output), ".kicad_pro"), "version": 1},
		"board":   map[string]any{"copies": boards},
		"project": project,
	}
	prl := map[string]any{
		"meta":  map[string]any{"filename": storage.ReplaceExt(filepath.Base(output), ".kicad_prl"), "version": 3},
		"board": map[string]any{"active_layer": 0, "visible_layers": "fffffff_ffffffff"},
	}
	for ext, doc := range map[string]any{".kicad_pro": pro, ".kicad_prl": prl} {
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		if err := storage.WriteFileAtomic(storage.ReplaceExt(output, ext), b); err != nil {
			return fmt.Errorf("write %s: %w", ext, err)
		}
	}
	return nil
}
