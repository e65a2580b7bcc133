/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package session

import (
	"log/slog"
	"sync"

	applog "gopanelize/internal/log"
	"gopanelize/internal/progress"
)

// UI is what the controller needs from the toolkit. All methods are called from the
// controlling goroutine.
type UI interface {
	progress.Indicator
	ShowProgress(title string)
	HideProgress()
	// Pump drains pending UI events so the interface stays responsive.
	Pump()
	Error(msg string)
	Info(msg string)
	// Confirm asks a yes/no question; the default answer is no.
	Confirm(msg string) bool
}

// Headless is a UI without a toolkit. Messages are logged and kept for inspection.
type Headless struct {
	// Answer is returned by Confirm.
	Answer bool

	mu        sync.Mutex
	log       *slog.Logger
	pulses    []string
	errors    []string
	infos     []string
	visible   bool
	refreshes int
	pumps     int
}

func NewHeadless(answer bool) *Headless {
	return &Headless{Answer: answer, log: applog.WithComponent("ui")}
}

func (h *Headless) Pulse(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pulses = append(h.pulses, msg)
	h.log.Debug("progress", slog.String("msg", msg))
}

func (h *Headless) Refresh() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refreshes++
}

func (h *Headless) ShowProgress(string) { h.setVisible(true) }
func (h *Headless) HideProgress()       { h.setVisible(false) }

func (h *Headless) setVisible(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = v
}

func (h *Headless) Pump() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pumps++
}

func (h *Headless) Confirm(msg string) bool {
	h.log.Info("confirm", slog.String("msg", msg), slog.Bool("answer", h.Answer))
	return h.Answer
}

func (h *Headless) Error(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	h.log.Error(msg)
}

func (h *Headless) Info(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.infos = append(h.infos, msg)
	h.log.Info(msg)
}

// Pulses returns every forwarded progress message.
func (h *Headless) Pulses() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.pulses...)
}

// Errors returns every error shown.
func (h *Headless) Errors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.errors...)
}

func (h *Headless) Infos() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.infos...)
}

// ProgressVisible reports whether the progress indicator is shown.
func (h *Headless) ProgressVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

// Counts returns how often the indicator was repainted and events were pumped.
func (h *Headless) Counts() (refreshes, pumps int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshes, h.pumps
}
