/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package preset

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// DefaultLayer is the base layer every chain should start with.
const DefaultLayer = ":default"

// ErrUnknownLayer is returned for a ":name" that is not a built-in layer.
var ErrUnknownLayer = errors.New("unknown built-in preset")

// Builtins lists the names of the embedded layers, each prefixed with ':'.
func Builtins() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		out = append(out, ":"+strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(out)
	return out
}

// Builtin returns a fresh copy of the named built-in layer.
func Builtin(name string) (Preset, error) {
	base := strings.TrimPrefix(name, ":")
	data, err := builtinFS.ReadFile(path.Join("builtin", base+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownLayer, name, strings.Join(Builtins(), ", "))
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("builtin %s: %w", name, err)
	}
	return p, nil
}

// Load resolves a chain of layers into one preset. Entries starting with ':' are
// built-in layers; anything else is a JSON file path. Later layers win.
func Load(chain ...string) (Preset, error) {
	out := Preset{}
	for _, layer := range chain {
		var (
			p   Preset
			err error
		)
		if strings.HasPrefix(layer, ":") {
			p, err = Builtin(layer)
		} else {
			p, err = ReadFile(layer)
		}
		if err != nil {
			return nil, err
		}
		Merge(out, p)
	}
	return out, nil
}

// MustDefault returns the :default layer and panics if the embedded data is broken.
func MustDefault() Preset {
	p, err := Builtin(DefaultLayer)
	if err != nil {
		panic(err)
	}
	return p
}
