/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package form

import (
	"gopanelize/internal/preset"
	"gopanelize/internal/schema"
)

// SectionForm holds the controls of one section in declaration order.
type SectionForm struct {
	section  schema.Section
	controls []Control
	byName   map[string]Control
}

// NewSection builds controls for every option of s.
func NewSection(s schema.Section, onChange func()) *SectionForm {
	f := &SectionForm{section: s, byName: make(map[string]Control, len(s.Options))}
	for _, o := range s.Options {
		c := NewControl(o, onChange)
		f.controls = append(f.controls, c)
		f.byName[o.Name] = c
	}
	return f
}

func (f *SectionForm) Title() string       { return f.section.Title }
func (f *SectionForm) Key() string         { return f.section.Key() }
func (f *SectionForm) Controls() []Control { return append([]Control(nil), f.controls...) }

// Control looks up a control by option name.
func (f *SectionForm) Control(name string) (Control, bool) {
	c, ok := f.byName[name]
	return c, ok
}

// Populate sets every control whose option is present in values.
func (f *SectionForm) Populate(values preset.Section) {
	for _, c := range f.controls {
		v, ok := values[c.Option().Name]
		if !ok {
			continue
		}
		c.SetValue(v)
	}
}

// Collect returns the value of every control.
func (f *SectionForm) Collect() preset.Section {
	out := make(preset.Section, len(f.controls))
	for _, c := range f.controls {
		out[c.Option().Name] = c.Value()
	}
	return out
}

func (f *SectionForm) values() schema.Values {
	v := make(schema.Values, len(f.controls))
	for _, c := range f.controls {
		v[c.Option().Name] = c.Value()
	}
	return v
}

// CollectRelevant returns the values of controls relevant to the current section values.
func (f *SectionForm) CollectRelevant() preset.Section {
	vals := f.values()
	out := preset.Section{}
	for _, c := range f.controls {
		if c.Option().Relevant(vals) {
			out[c.Option().Name] = c.Value()
		}
	}
	return out
}

// ShowOnlyRelevant updates control visibility and reports whether any changed. The
// first call always reports a change.
func (f *SectionForm) ShowOnlyRelevant() bool {
	vals := f.values()
	changed := false
	for _, c := range f.controls {
		if c.showIfRelevant(vals) {
			changed = true
		}
	}
	return changed
}

// Form is the whole configuration form in registry order.
type Form struct {
	sections []*SectionForm
	byKey    map[string]*SectionForm
}

// New builds a form over every section of reg.
func New(reg *schema.Registry, onChange func()) *Form {
	f := &Form{byKey: map[string]*SectionForm{}}
	for _, s := range reg.Sections() {
		sf := NewSection(s, onChange)
		f.sections = append(f.sections, sf)
		f.byKey[sf.Key()] = sf
	}
	return f
}

func (f *Form) Sections() []*SectionForm { return append([]*SectionForm(nil), f.sections...) }

func (f *Form) Section(key string) (*SectionForm, bool) {
	s, ok := f.byKey[key]
	return s, ok
}

// Populate fills sections present in p; others keep their values.
func (f *Form) Populate(p preset.Preset) {
	for _, s := range f.sections {
		if vals, ok := p[s.Key()]; ok {
			s.Populate(vals)
		}
	}
}

// Collect returns every section's values.
func (f *Form) Collect() preset.Preset {
	out := make(preset.Preset, len(f.sections))
	for _, s := range f.sections {
		out[s.Key()] = s.Collect()
	}
	return out
}

// CollectRelevant returns relevant values of the engine sections only.
func (f *Form) CollectRelevant() preset.Preset {
	out := make(preset.Preset, len(f.sections))
	for _, s := range f.sections {
		out[s.Key()] = s.CollectRelevant()
	}
	delete(out, schema.InputSection)
	delete(out, schema.OutputSection)
	return out
}

// ShowOnlyRelevant updates visibility in every section and reports whether the layout changed.
func (f *Form) ShowOnlyRelevant() bool {
	changed := false
	for _, s := range f.sections {
		if s.ShowOnlyRelevant() {
			changed = true
		}
	}
	return changed
}

// Value reads one option.
func (f *Form) Value(section, option string) (string, bool) {
	s, ok := f.byKey[section]
	if !ok {
		return "", false
	}
	c, ok := s.byName[option]
	if !ok {
		return "", false
	}
	return c.Value(), true
}

// Edit applies a user edit to one option and reports whether the option exists.
func (f *Form) Edit(section, option, value string) bool {
	s, ok := f.byKey[section]
	if !ok {
		return false
	}
	c, ok := s.byName[option]
	if !ok {
		return false
	}
	c.Edit(value)
	return true
}
