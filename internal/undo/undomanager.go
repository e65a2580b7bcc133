/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-scope undo/redo history of configuration edits.
package undo

import (
	"encoding/json"
	"sync"
	"time"

	"gopanelize/internal/preset"
)

// Snapshot is a serialized configuration state of one scope.
// Size is estimated as len(Blob). TS is when the state was captured.
type Snapshot struct {
	Scope string
	Blob  []byte
	TS    time.Time
}

// Capture serializes p into a snapshot.
func Capture(scope string, p preset.Preset, ts time.Time) (Snapshot, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Scope: scope, Blob: b, TS: ts}, nil
}

// Preset decodes the snapshot.
func (s Snapshot) Preset() (preset.Preset, error) { return preset.Unmarshal(s.Blob) }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerScope limits the undo depth per scope (0 means unlimited).
	MaxPerScope int
	// MinInterval coalesces bursts of edits: a state captured within the interval of
	// the previous one on the same scope is dropped, so one undo step spans the burst.
	MinInterval time.Duration
}

// Manager holds undo and redo stacks per scope. It is safe for concurrent use.
type Manager struct {
	cfg        Config
	mu         sync.Mutex
	undo       map[string][]Snapshot
	redo       map[string][]Snapshot
	totalBytes int
	// sealed scopes just had an undo or redo; their next push never coalesces.
	sealed map[string]bool
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 4 * 1024 * 1024
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 500 * time.Millisecond
	}
	return &Manager{
		cfg:    cfg,
		undo:   make(map[string][]Snapshot),
		redo:   make(map[string][]Snapshot),
		sealed: make(map[string]bool),
	}
}

// Push records the state preceding an edit. Any new edit invalidates redo for the scope.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.Scope)
	sealed := m.sealed[s.Scope]
	delete(m.sealed, s.Scope)
	stack := m.undo[s.Scope]
	if n := len(stack); n > 0 && !sealed && s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
		stack[n-1].TS = s.TS
		return
	}
	m.undo[s.Scope] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Scope)
}

// Undo returns the state to restore and keeps current for Redo.
func (m *Manager) Undo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[current.Scope]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[current.Scope] = stack[:len(stack)-1]
	m.totalBytes += len(current.Blob) - len(s.Blob)
	m.redo[current.Scope] = append(m.redo[current.Scope], current)
	m.sealed[current.Scope] = true
	return s, true
}

// Redo returns the state undone last and keeps current for Undo.
func (m *Manager) Redo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[current.Scope]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[current.Scope] = r[:len(r)-1]
	m.undo[current.Scope] = append(m.undo[current.Scope], current)
	m.totalBytes += len(current.Blob) - len(s.Blob)
	m.sealed[current.Scope] = true
	m.enforceCapsLocked(current.Scope)
	return s, true
}

// CanUndo and CanRedo report whether a step is available.
func (m *Manager) CanUndo(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[scope]) > 0
}

func (m *Manager) CanRedo(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[scope]) > 0
}

// Clear drops the history of a scope.
func (m *Manager) Clear(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[scope] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(scope)
	delete(m.undo, scope)
	delete(m.redo, scope)
	delete(m.sealed, scope)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, scopes int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scopes = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	for _, v := range m.redo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, scopes, totalSnapshots
}

func (m *Manager) dropRedoLocked(scope string) {
	for _, s := range m.redo[scope] {
		m.totalBytes -= len(s.Blob)
	}
	m.redo[scope] = nil
}

func (m *Manager) enforceCapsLocked(scope string) {
	if m.cfg.MaxPerScope > 0 {
		stack := m.undo[scope]
		if len(stack) > m.cfg.MaxPerScope {
			drop := len(stack) - m.cfg.MaxPerScope
			for i := 0; i < drop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[scope] = append([]Snapshot{}, stack[drop:]...)
		}
	}
	// Global memory cap: prune the oldest undo entry across scopes.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for sc, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = sc, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
