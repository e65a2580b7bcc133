/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package schema is the registry of configuration sections and options understood by
// the panelization engine. The rest of the program treats names opaquely and asks the
// registry for kinds, choices and relevance.
package schema

import (
	"strings"
)

// Kind is the closed set of option value domains.
type Kind int

const (
	KindText Kind = iota
	KindChoice
	KindInputPath
	KindOutputPath
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindChoice:
		return "choice"
	case KindInputPath:
		return "input-path"
	case KindOutputPath:
		return "output-path"
	default:
		return "unknown"
	}
}

// Values are the current raw values of one section, keyed by option name.
type Values map[string]string

// Option describes one configurable option.
type Option struct {
	Name        string
	Kind        Kind
	Description string
	// Choices lists the allowed values of a KindChoice option; the first is the fallback.
	Choices []string
	// NameFilter is the file pattern offered by path pickers.
	NameFilter string
	// RelevantWhen reports whether the option matters given the rest of its section.
	// A nil predicate means always relevant.
	RelevantWhen func(Values) bool
}

// Relevant evaluates the option's relevance predicate.
func (o Option) Relevant(v Values) bool {
	if o.RelevantWhen == nil {
		return true
	}
	return o.RelevantWhen(v)
}

// Section groups options under one configuration key.
type Section struct {
	// Title is the display name, e.g. "Layout". The configuration key is its lower case.
	Title   string
	Options []Option
}

// Key returns the configuration key of the section.
func (s Section) Key() string { return strings.ToLower(s.Title) }

// Option looks up an option by name.
func (s Section) Option(name string) (Option, bool) {
	for _, o := range s.Options {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// OptionNames lists option names in declaration order.
func (s Section) OptionNames() []string {
	out := make([]string, len(s.Options))
	for i, o := range s.Options {
		out[i] = o.Name
	}
	return out
}

// Registry is an ordered set of sections.
type Registry struct {
	sections []Section
	byKey    map[string]int
}

// NewRegistry builds a registry preserving the given order.
func NewRegistry(sections ...Section) *Registry {
	r := &Registry{byKey: make(map[string]int, len(sections))}
	for _, s := range sections {
		r.byKey[s.Key()] = len(r.sections)
		r.sections = append(r.sections, s)
	}
	return r
}

// Sections returns all sections in display order.
func (r *Registry) Sections() []Section { return append([]Section(nil), r.sections...) }

// Section finds a section by configuration key (case-insensitive).
func (r *Registry) Section(key string) (Section, bool) {
	i, ok := r.byKey[strings.ToLower(key)]
	if !ok {
		return Section{}, false
	}
	return r.sections[i], true
}

// Names returns configuration keys in display order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.sections))
	for i, s := range r.sections {
		out[i] = s.Key()
	}
	return out
}

// EngineNames returns the keys of sections passed to the engine, i.e. all but the
// input and output pseudo-sections.
func (r *Registry) EngineNames() []string {
	var out []string
	for _, k := range r.Names() {
		if k == InputSection || k == OutputSection {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Pseudo-sections holding the positional paths in the interactive form.
const (
	InputSection  = "input"
	OutputSection = "output"
	InputOption   = "Input file"
	OutputOption  = "Output file"
)

func typeIs(vals ...string) func(Values) bool {
	return func(v Values) bool {
		t := strings.ToLower(v["type"])
		for _, x := range vals {
			if t == x {
				return true
			}
		}
		return false
	}
}

func typeIsNot(vals ...string) func(Values) bool {
	in := typeIs(vals...)
	return func(v Values) bool { return !in(v) }
}

func text(name, desc string, when func(Values) bool) Option {
	return Option{Name: name, Kind: KindText, Description: desc, RelevantWhen: when}
}

func choice(name, desc string, vals []string, when func(Values) bool) Option {
	return Option{Name: name, Kind: KindChoice, Description: desc, Choices: vals, RelevantWhen: when}
}
