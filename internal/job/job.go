/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package job runs one panelization on a worker goroutine.
//
// The worker only touches files, the engine and the board it loads itself; it never
// sees the live board. Failures are stored as values and handed to the controlling
// goroutine after it observes completion. There is no cancellation: once started, a
// job runs until the engine returns.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gopanelize/internal/board"
	"gopanelize/internal/engine"
	applog "gopanelize/internal/log"
	"gopanelize/internal/preset"
	"gopanelize/internal/storage"
)

// State of a Runner.
type State int32

const (
	Idle State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("job already started")

// Failure is a worker error captured for the controlling goroutine.
type Failure struct {
	Message string
	// Trace is the worker stack at the point of failure.
	Trace string
	Err   error
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

// ScratchName is the file name of the private copy loaded by the worker.
const ScratchName = "panel-copy.kicad_pcb"

// Result describes a finished job.
type Result struct {
	ID       string
	Input    string
	Output   string
	Digest   string
	Started  time.Time
	Finished time.Time
}

// Runner executes one panelization. It is used from a single controlling goroutine.
type Runner struct {
	id      string
	engine  engine.Engine
	loader  board.Loader
	scratch string
	log     *slog.Logger

	state      atomic.Int32
	lastOutput atomic.Value
	done       chan struct{}
	startOnce  sync.Once

	// Written by the worker before done is closed, read after.
	failure   *Failure
	generated board.Document
	result    Result
}

// New prepares a runner. scratchDir is created if needed and owned by the runner;
// an empty scratchDir makes the runner create a temporary one.
func New(eng engine.Engine, loader board.Loader, scratchDir string) *Runner {
	id := uuid.NewString()
	return &Runner{
		id:      id,
		engine:  eng,
		loader:  loader,
		scratch: scratchDir,
		log:     applog.WithJob(applog.WithComponent("job"), id),
		done:    make(chan struct{}),
	}
}

func (r *Runner) ID() string { return r.id }

func (r *Runner) State() State { return State(r.state.Load()) }

// LastOutput returns the latest engine output line; safe while running.
func (r *Runner) LastOutput() string {
	s, _ := r.lastOutput.Load().(string)
	return s
}

// Start spawns the worker. cfg is copied before the worker sees it.
func (r *Runner) Start(ctx context.Context, input, output string, cfg preset.Preset) error {
	started := false
	r.startOnce.Do(func() { started = true })
	if !started {
		return ErrAlreadyStarted
	}
	if r.scratch == "" {
		dir, err := os.MkdirTemp("", "gopanelize-")
		if err != nil {
			r.finish(nil, &Failure{Message: err.Error(), Err: err})
			return nil
		}
		r.scratch = dir
	} else if err := os.MkdirAll(r.scratch, 0o755); err != nil {
		r.finish(nil, &Failure{Message: err.Error(), Err: err})
		return nil
	}
	r.state.Store(int32(Running))
	r.result = Result{ID: r.id, Input: input, Output: output, Started: time.Now()}
	cfg = preset.Copy(cfg)
	ctx = applog.ContextWithJob(ctx, r.id)
	go r.work(ctx, input, output, cfg)
	return nil
}

func (r *Runner) work(ctx context.Context, input, output string, cfg preset.Preset) {
	var (
		doc board.Document
		f   *Failure
	)
	defer func() {
		if p := recover(); p != nil {
			f = &Failure{Message: fmt.Sprint(p), Trace: string(debug.Stack()), Err: fmt.Errorf("panic: %v", p)}
			doc = nil
		}
		r.finish(doc, f)
	}()

	r.log.InfoContext(ctx, "panelization started", slog.String("input", input), slog.String("output", output))
	err := r.engine.Panelize(ctx, input, output, cfg, func(line string) { r.lastOutput.Store(line) })
	if err != nil {
		f = &Failure{Message: err.Error(), Trace: string(debug.Stack()), Err: err}
		return
	}

	// The freshly written file is loaded through a private copy; some hosts return
	// an incomplete board when loading the output in place.
	scratch := filepath.Join(r.scratch, ScratchName)
	cp, err := storage.CopyWithCompanions(output, scratch)
	if err != nil {
		f = &Failure{Message: err.Error(), Trace: string(debug.Stack()), Err: err}
		return
	}
	r.result.Digest = cp.Digest

	doc, err = r.loader.LoadBoard(cp.Path)
	if err != nil {
		f = &Failure{Message: err.Error(), Trace: string(debug.Stack()), Err: err}
		return
	}
	r.log.InfoContext(ctx, "panel loaded", slog.String("digest", cp.Digest), slog.Int("companions", len(cp.Companions)))
}

func (r *Runner) finish(doc board.Document, f *Failure) {
	r.generated = doc
	r.failure = f
	r.result.Finished = time.Now()
	if f != nil {
		r.log.Error("panelization failed", slog.String("err", f.Message))
		r.state.Store(int32(Failed))
	} else {
		r.state.Store(int32(Succeeded))
	}
	close(r.done)
}

// Done is closed when the worker has finished.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Join waits up to timeout for the worker and reports whether it has finished.
// A non-positive timeout only polls.
func (r *Runner) Join(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-r.done:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-r.done:
		return true
	case <-t.C:
		return false
	}
}

// Err returns the captured failure after the worker finished, or nil.
func (r *Runner) Err() error {
	select {
	case <-r.done:
	default:
		return nil
	}
	if r.failure == nil {
		return nil
	}
	return r.failure
}

// Generated returns the board loaded by the worker once the job has succeeded.
func (r *Runner) Generated() board.Document {
	if r.State() != Succeeded {
		return nil
	}
	return r.generated
}

// Result returns the job summary; valid after completion.
func (r *Runner) Result() Result {
	if !r.Join(0) {
		return Result{ID: r.id}
	}
	return r.result
}

// Close drops the generated board and removes the scratch directory. It must not be
// called while the worker is running.
func (r *Runner) Close() error {
	if r.State() == Running {
		return errors.New("job still running")
	}
	r.generated = nil
	if r.scratch == "" {
		return nil
	}
	return os.RemoveAll(r.scratch)
}
