/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package main

import (
	"fmt"

	"gopanelize/internal/command"
	"gopanelize/internal/preset"
	"gopanelize/internal/schema"
)

// SectionFlags mirror the kikit panelize command line: presets first, then one
// "key: value; key: value" flag per configuration section.
type SectionFlags struct {
	Preset []string `short:"p" help:"Preset layer applied over :default, in order. ':name' selects a built-in."`

	Layout     string `help:"Layout section, e.g. 'type: grid; rows: 2; cols: 2'." placeholder:"VALUES"`
	Source     string `help:"Source section." placeholder:"VALUES"`
	Tabs       string `help:"Tabs section." placeholder:"VALUES"`
	Cuts       string `help:"Cuts section." placeholder:"VALUES"`
	Framing    string `help:"Framing section." placeholder:"VALUES"`
	Tooling    string `help:"Tooling section." placeholder:"VALUES"`
	Fiducials  string `help:"Fiducials section." placeholder:"VALUES"`
	Text       string `help:"Text section." placeholder:"VALUES"`
	Copperfill string `help:"Copperfill section." placeholder:"VALUES"`
	Page       string `help:"Page section." placeholder:"VALUES"`
	Post       string `help:"Post section." placeholder:"VALUES"`
	Debug      string `help:"Debug section." placeholder:"VALUES"`
}

func (f SectionFlags) values() map[string]string {
	return map[string]string{
		"layout":     f.Layout,
		"source":     f.Source,
		"tabs":       f.Tabs,
		"cuts":       f.Cuts,
		"framing":    f.Framing,
		"tooling":    f.Tooling,
		"fiducials":  f.Fiducials,
		"text":       f.Text,
		"copperfill": f.Copperfill,
		"page":       f.Page,
		"post":       f.Post,
		"debug":      f.Debug,
	}
}

// overlay parses the per-section flags.
func (f SectionFlags) overlay() (preset.Preset, error) {
	out := preset.Preset{}
	for name, v := range f.values() {
		if v == "" {
			continue
		}
		sec, err := command.ParseSectionValue(v)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		out[name] = sec
	}
	return out, nil
}

// resolve builds the full configuration (:default, presets, flags) and its minimal
// diff against :default. The result is validated against the registry.
func (f SectionFlags) resolve(reg *schema.Registry) (cfg, diff preset.Preset, err error) {
	chain := append([]string{preset.DefaultLayer}, f.Preset...)
	cfg, err = preset.Load(chain...)
	if err != nil {
		return nil, nil, err
	}
	ov, err := f.overlay()
	if err != nil {
		return nil, nil, err
	}
	preset.Merge(cfg, ov)
	if err := preset.ValidatePreset(cfg, reg); err != nil {
		return nil, nil, err
	}
	return cfg, preset.Diff(preset.MustDefault(), cfg), nil
}
