/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns process-level panics into a crash report and a non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	applog "gopanelize/internal/log"
	"gopanelize/internal/storage"
	"gopanelize/internal/telemetry"
	"gopanelize/internal/version"
)

// exitFn is replaced in tests.
var exitFn = os.Exit

// Context describes what the process was doing when it crashed.
type Context struct {
	mu     sync.Mutex
	Dir    string // where reports go; os.TempDir() when empty
	Input  string
	Output string
	JobID  string
}

// SetJob records the job currently running.
func (c *Context) SetJob(id, input, output string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.JobID, c.Input, c.Output = id, input, output
	c.mu.Unlock()
}

func (c *Context) snapshot() (dir, job, in, out string) {
	if c == nil {
		return "", "", "", ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Dir, c.JobID, c.Input, c.Output
}

// Recover captures a panic, logs it with its stack, writes a report and exits with code 2.
//
// Usage: defer crash.Recover(cc)
func Recover(cc *Context) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, err := writeReport(cc, r, stack)
		if err != nil {
			l.Error("crash report not written", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func writeReport(cc *Context, panicVal any, stack []byte) (string, error) {
	dir, job, in, out := cc.snapshot()
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("gopanelize-crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "gopanelize Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if job != "" {
		_, _ = fmt.Fprintf(&buf, "Job: %s\n", job)
		_, _ = fmt.Fprintf(&buf, "Input: %s\n", in)
		_, _ = fmt.Fprintf(&buf, "Output: %s\n", out)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := storage.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return path, err
	}

	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
