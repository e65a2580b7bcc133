/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"strings"
	"testing"
)

func TestWriteReportWithoutContext(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "gopanelize Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
	if strings.Contains(s, "Job:") {
		t.Fatalf("no job expected: %s", s)
	}
}

func TestWriteReportIncludesJob(t *testing.T) {
	cc := &Context{Dir: t.TempDir()}
	cc.SetJob("job-1", "in.kicad_pcb", "out.kicad_pcb")
	path, err := writeReport(cc, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if !strings.HasPrefix(path, cc.Dir) {
		t.Fatalf("report not in context dir: %s", path)
	}
	b, _ := os.ReadFile(path)
	for _, want := range []string{"Job: job-1", "Input: in.kicad_pcb", "Output: out.kicad_pcb"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("report lacks %q: %s", want, b)
		}
	}
}
