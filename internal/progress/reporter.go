/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package progress rate-limits phase notifications towards a modal progress indicator.
package progress

import (
	"time"
)

// MinInterval is the minimum spacing of unforced updates (50 Hz).
const MinInterval = 20 * time.Millisecond

// Prefix is prepended to every phase shown by the indicator.
const Prefix = "Running KiKit: "

// Indicator is the UI side of a progress display.
type Indicator interface {
	// Pulse shows an indeterminate tick with a new message.
	Pulse(msg string)
	// Refresh forces the indicator to repaint now.
	Refresh()
}

// Reporter tracks the current phase and forwards it at most every MinInterval
// unless forced. It must only be used from the controlling goroutine.
type Reporter struct {
	ind  Indicator
	pump func()
	now  func() time.Time

	phase     string
	last      time.Time
	forwarded int
}

// New creates a reporter. ind and pump may be nil; pump drains pending UI events.
func New(ind Indicator, pump func()) *Reporter {
	return &Reporter{ind: ind, pump: pump, now: time.Now}
}

// SetClock replaces the time source (tests).
func (r *Reporter) SetClock(now func() time.Time) { r.now = now }

// Report records phase and forwards it when force is set or MinInterval elapsed since
// the last forwarded update. Forced updates also repaint the indicator.
func (r *Reporter) Report(phase string, force bool) {
	r.phase = phase
	now := r.now()
	if !force && r.forwarded > 0 && now.Sub(r.last) < MinInterval {
		return
	}
	r.last = now
	r.forwarded++
	if r.ind != nil {
		r.ind.Pulse(Prefix + phase)
		if force {
			r.ind.Refresh()
		}
	}
	if r.pump != nil {
		r.pump()
	}
}

// Phase returns the most recently reported phase, forwarded or not.
func (r *Reporter) Phase() string { return r.phase }

// Forwarded counts updates that reached the indicator.
func (r *Reporter) Forwarded() int { return r.forwarded }

// Func adapts the reporter to an unforced phase callback.
func (r *Reporter) Func() func(string) {
	return func(phase string) { r.Report(phase, false) }
}
