/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package memboard

import (
	"encoding/json"
	"fmt"
	"os"

	"gopanelize/internal/board"
	"gopanelize/internal/storage"
)

const fileVersion = 1

type fileFormat struct {
	Version    int                  `json:"version"`
	Properties map[string]string    `json:"properties,omitempty"`
	Project    map[string]string    `json:"project,omitempty"`
	Page       board.PageSettings   `json:"page"`
	Title      board.TitleBlock     `json:"titleBlock"`
	Zone       board.ZoneSettings   `json:"zoneSettings"`
	Design     board.DesignSettings `json:"designSettings"`
	Nets       []board.Net          `json:"nets,omitempty"`
	Drawings   []*board.Drawing     `json:"drawings,omitempty"`
	Footprints []*board.Footprint   `json:"footprints,omitempty"`
	Tracks     []*board.Track       `json:"tracks,omitempty"`
	Zones      []*board.Zone        `json:"zones,omitempty"`
}

// Load reads a board file.
func Load(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse board %s: %w", path, err)
	}
	if f.Version > fileVersion {
		return nil, fmt.Errorf("board %s: unsupported file version %d", path, f.Version)
	}
	b := New()
	b.fileName = path
	b.SetProperties(f.Properties)
	b.SetProject(f.Project)
	b.page = f.Page
	b.title = f.Title.Clone()
	b.zone = f.Zone
	b.design = f.Design.Clone()
	for _, n := range f.Nets {
		b.nets[n.Code] = n
	}
	for _, d := range f.Drawings {
		_ = b.Add(d)
	}
	for _, fp := range f.Footprints {
		_ = b.Add(fp)
	}
	for _, t := range f.Tracks {
		_ = b.Add(t)
	}
	for _, z := range f.Zones {
		_ = b.Add(z)
	}
	return b, nil
}

// Save writes the board to path atomically. Elements that are not memboard
// vocabulary types cannot be persisted and yield an error.
func (b *Board) Save(path string) error {
	f := fileFormat{
		Version:    fileVersion,
		Properties: b.Properties(),
		Project:    b.Project(),
		Page:       b.page,
		Title:      b.title,
		Zone:       b.zone,
		Design:     b.design,
		Nets:       b.Nets(),
	}
	for _, it := range b.drawings {
		d, ok := it.(*board.Drawing)
		if !ok {
			return fmt.Errorf("save: unsupported drawing type %T", it)
		}
		f.Drawings = append(f.Drawings, d)
	}
	for _, it := range b.footprints {
		fp, ok := it.(*board.Footprint)
		if !ok {
			return fmt.Errorf("save: unsupported footprint type %T", it)
		}
		f.Footprints = append(f.Footprints, fp)
	}
	for _, it := range b.tracks {
		t, ok := it.(*board.Track)
		if !ok {
			return fmt.Errorf("save: unsupported track type %T", it)
		}
		f.Tracks = append(f.Tracks, t)
	}
	for _, it := range b.zones {
		z, ok := it.(*board.Zone)
		if !ok {
			return fmt.Errorf("save: unsupported zone type %T", it)
		}
		f.Zones = append(f.Zones, z)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	data = append(data, '\n')
	if err := storage.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write board: %w", err)
	}
	b.fileName = path
	return nil
}
