/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopanelize/internal/storage"
)

// Marshal renders p as UTF-8 JSON with 4-space indentation. Empty sections are left
// out; keys are sorted.
func Marshal(p Preset) ([]byte, error) {
	out := make(map[string]Section, len(p))
	for name, sec := range p {
		if len(sec) == 0 {
			continue
		}
		out[name] = sec
	}
	b, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Unmarshal parses a preset document. Numbers are kept in their textual form.
func Unmarshal(data []byte) (Preset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode preset: %w", err)
	}
	p := make(Preset, len(raw))
	for name, sec := range raw {
		p[name] = Section(sec)
		if p[name] == nil {
			p[name] = Section{}
		}
	}
	return p, nil
}

// ReadFile loads a preset from disk.
func ReadFile(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset %s: %w", path, err)
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// WriteFile atomically writes p to path.
func WriteFile(path string, p Preset) error {
	b, err := Marshal(p)
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, b)
}
