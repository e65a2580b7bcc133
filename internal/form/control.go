/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package form binds configuration options to editable controls. It is toolkit-free:
// a UI renders each Control and forwards user edits through Edit.
package form

import (
	"strings"

	"gopanelize/internal/preset"
	"gopanelize/internal/schema"
)

// Control is the editable state of one option. The set of implementations is closed;
// NewControl picks one from the option kind.
type Control interface {
	Option() schema.Option
	// Value returns the current raw value.
	Value() string
	// SetValue replaces the value without notifying listeners.
	SetValue(v any)
	// Edit replaces the value as a user edit and notifies the change listener.
	Edit(v string)
	// Visible reports whether the control is currently shown.
	Visible() bool
	showIfRelevant(v schema.Values) bool
}

type base struct {
	opt      schema.Option
	onChange func()
	shown    bool
	fresh    bool
}

func (b *base) Option() schema.Option { return b.opt }
func (b *base) Visible() bool         { return b.shown }

func (b *base) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

func (b *base) showIfRelevant(v schema.Values) bool {
	rel := b.opt.Relevant(v)
	if b.fresh || b.shown != rel {
		b.shown = rel
		b.fresh = false
		return true
	}
	return false
}

type textControl struct {
	base
	value string
}

func (c *textControl) Value() string  { return c.value }
func (c *textControl) SetValue(v any) { c.value = preset.Stringify(v) }
func (c *textControl) Edit(v string)  { c.value = v; c.changed() }

// choiceControl holds an index into the option's choices. Values not among the
// choices leave the selection unchanged.
type choiceControl struct {
	base
	selected int
}

func (c *choiceControl) Value() string {
	if c.selected < 0 || c.selected >= len(c.opt.Choices) {
		return ""
	}
	return c.opt.Choices[c.selected]
}

func (c *choiceControl) SetValue(v any) {
	s := strings.ToLower(preset.Stringify(v))
	for i, ch := range c.opt.Choices {
		if strings.ToLower(ch) == s {
			c.selected = i
			return
		}
	}
}

func (c *choiceControl) Edit(v string) { c.SetValue(v); c.changed() }

// pathControl is a file picker. Input pickers require an existing file, output
// pickers prompt before overwriting; both are enforced by the UI.
type pathControl struct {
	base
	path   string
	output bool
}

func (c *pathControl) Value() string  { return c.path }
func (c *pathControl) SetValue(v any) { c.path = preset.Stringify(v) }
func (c *pathControl) Edit(v string)  { c.path = v; c.changed() }

// IsOutput reports whether the picker saves rather than opens.
func (c *pathControl) IsOutput() bool { return c.output }

// NewControl builds the control for opt. onChange fires on user edits and may be nil.
func NewControl(opt schema.Option, onChange func()) Control {
	b := base{opt: opt, onChange: onChange, fresh: true}
	switch opt.Kind {
	case schema.KindChoice:
		return &choiceControl{base: b}
	case schema.KindInputPath:
		return &pathControl{base: b}
	case schema.KindOutputPath:
		return &pathControl{base: b, output: true}
	default:
		return &textControl{base: b}
	}
}

// Choices returns the selectable values of a choice control, or nil.
func Choices(c Control) []string {
	if _, ok := c.(*choiceControl); !ok {
		return nil
	}
	return c.Option().Choices
}

// IsPath reports whether c is a file picker and whether it picks an output file.
func IsPath(c Control) (isPath, output bool) {
	p, ok := c.(*pathControl)
	if !ok {
		return false, false
	}
	return true, p.output
}
