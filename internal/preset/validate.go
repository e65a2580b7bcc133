/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	gojsonschema "github.com/xeipuuv/gojsonschema"

	"gopanelize/internal/schema"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid preset")

// ValidationError lists the problems found in a preset document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// JSONSchema builds a draft-07 schema accepting presets over the sections and options
// of reg. Values may be strings, numbers, booleans or lists of those.
func JSONSchema(reg *schema.Registry) map[string]any {
	scalar := []string{"string", "number", "boolean"}
	value := map[string]any{
		"anyOf": []any{
			map[string]any{"type": scalar},
			map[string]any{"type": "array", "items": map[string]any{"type": scalar}},
		},
	}
	props := map[string]any{}
	for _, sec := range reg.Sections() {
		opts := map[string]any{}
		for _, name := range sec.OptionNames() {
			opts[name] = value
		}
		props[sec.Key()] = map[string]any{
			"type":                 "object",
			"properties":           opts,
			"additionalProperties": false,
		}
	}
	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                "gopanelize preset",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

// Validate checks a raw preset document against the registry.
func Validate(data []byte, reg *schema.Registry) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(JSONSchema(reg)),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{}
	for _, re := range result.Errors() {
		verr.Problems = append(verr.Problems, describe(re, reg))
	}
	return verr
}

// ValidatePreset validates an in-memory preset.
func ValidatePreset(p Preset, reg *schema.Registry) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return Validate(b, reg)
}

func describe(re gojsonschema.ResultError, reg *schema.Registry) string {
	if re.Type() != "additional_property_not_allowed" {
		return re.String()
	}
	prop, _ := re.Details()["property"].(string)
	field := re.Field()
	var candidates []string
	where := "section"
	if field == "(root)" {
		candidates = reg.Names()
	} else {
		where = "option in " + field
		if sec, ok := reg.Section(field); ok {
			candidates = sec.OptionNames()
		}
	}
	msg := fmt.Sprintf("unknown %s %q", where, prop)
	if s := Suggest(prop, candidates); s != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return msg
}

// Suggest returns the closest candidate to name, or "" when nothing is close enough.
func Suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 {
		return ""
	}
	limit := len(name) / 2
	if limit < 2 {
		limit = 2
	}
	if bestDist > limit {
		return ""
	}
	return best
}
