/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/kballard/go-shellquote"

	"gopanelize/internal/preset"
)

// ErrMalformed is returned for command text that cannot be mapped back to a diff.
var ErrMalformed = errors.New("malformed command")

// sectionValue is one flag value: "key: value; key: value".
type sectionValue struct {
	Pairs []string `parser:"( @Pair | Semi )*"`
}

// Values may contain further colons; keys may not.
var valueLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Pair", Pattern: `[^;:]+:[^;]*`},
	{Name: "Semi", Pattern: `;`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var valueParser = participle.MustBuild[sectionValue](
	participle.Lexer(valueLexer),
	participle.Elide("Whitespace"),
)

// ParseSectionValue parses a flag value as emitted by Render. Keys and values are
// trimmed; an empty string yields an empty section.
func ParseSectionValue(s string) (preset.Section, error) {
	sec := preset.Section{}
	if strings.TrimSpace(s) == "" {
		return sec, nil
	}
	v, err := valueParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, p := range v.Pairs {
		k, val, _ := strings.Cut(p, ":")
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("%w: empty key in %q", ErrMalformed, p)
		}
		sec[k] = strings.TrimSpace(val)
	}
	return sec, nil
}

// Invocation is a parsed command line.
type Invocation struct {
	Diff   preset.Preset
	Input  string
	Output string
	// Presets lists --preset/-p layers in order of appearance.
	Presets []string
}

// ParseArgs maps argv (without the program name) to an invocation.
func ParseArgs(args []string) (Invocation, error) {
	inv := Invocation{Diff: preset.Preset{}}
	var positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") || len(a) == 1 {
			positional = append(positional, a)
			continue
		}
		name, val, hasVal := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !hasVal {
			if i+1 >= len(args) {
				return inv, fmt.Errorf("%w: flag %s has no value", ErrMalformed, a)
			}
			i++
			val = args[i]
		}
		if name == "preset" || name == "p" {
			inv.Presets = append(inv.Presets, val)
			continue
		}
		sec, err := ParseSectionValue(val)
		if err != nil {
			return inv, fmt.Errorf("--%s: %w", name, err)
		}
		preset.Merge(inv.Diff, preset.Preset{name: sec})
	}
	if len(positional) != 2 {
		return inv, fmt.Errorf("%w: want input and output, got %d positional arguments", ErrMalformed, len(positional))
	}
	inv.Input, inv.Output = positional[0], positional[1]
	if inv.Input == MissingInput {
		inv.Input = ""
	}
	if inv.Output == MissingOutput {
		inv.Output = ""
	}
	return inv, nil
}

// ParsePOSIX reverses a POSIX rendering, including its line continuations.
func ParsePOSIX(text string) (Invocation, error) {
	words, err := shellquote.Split(strings.ReplaceAll(text, "\\\n", " "))
	if err != nil {
		return Invocation{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	prog := strings.Fields(Program)
	if len(words) < len(prog) {
		return Invocation{}, fmt.Errorf("%w: not a %s command", ErrMalformed, Program)
	}
	for i, w := range prog {
		if words[i] != w {
			return Invocation{}, fmt.Errorf("%w: not a %s command", ErrMalformed, Program)
		}
	}
	return ParseArgs(words[len(prog):])
}
