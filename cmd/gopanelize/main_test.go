/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gopanelize/internal/board/boardtest"
	"gopanelize/internal/board/memboard"
	"gopanelize/internal/command"
	"gopanelize/internal/crash"
	"gopanelize/internal/preset"
)

type testEnv struct {
	dir    string
	config string
	input  string
}

func newTestEnv(t *testing.T, extraYAML string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GPZ_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("GPZ_ENGINE", "")
	t.Setenv("GPZ_HISTORY_DSN", "")
	t.Setenv("GPZ_TELEMETRY_OPT_IN", "")
	te := &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		input:  filepath.Join(dir, "source.kicad_pcb"),
	}
	yaml := "engine:\n  kind: grid\nhistory:\n  enabled: true\n  dsn: " +
		filepath.ToSlash(filepath.Join(dir, "history.db")) + "\nlogging:\n  level: error\n" + extraYAML
	if err := os.WriteFile(te.config, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := boardtest.Sample("src").Save(te.input); err != nil {
		t.Fatalf("save source: %v", err)
	}
	return te
}

// run executes the CLI with the test config and returns exit code, stdout and stderr.
func (te *testEnv) run(args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	full := append([]string{"--config", te.config}, args...)
	code := run(full, &out, &errOut, &crash.Context{Dir: te.dir})
	return code, out.String(), errOut.String()
}

func (te *testEnv) path(name string) string { return filepath.Join(te.dir, name) }

func TestVersion(t *testing.T) {
	te := newTestEnv(t, "")
	code, out, _ := te.run("version")
	if code != 0 || !strings.HasPrefix(out, "gopanelize ") {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestUnknownCommandFails(t *testing.T) {
	te := newTestEnv(t, "")
	if code, _, _ := te.run("frobnicate"); code == 0 {
		t.Fatal("expected non-zero exit")
	}
}

func TestCommandRendersFlags(t *testing.T) {
	te := newTestEnv(t, "")
	code, out, errOut := te.run("command", "--layout", "rows: 3", "--dialect", "posix")
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	want := command.Render(preset.Preset{"layout": {"rows": "3"}}, command.POSIX, "", "")
	if strings.TrimRight(out, "\n") != want {
		t.Fatalf("out=%q\nwant=%q", out, want)
	}
	if !strings.Contains(out, command.MissingInput) {
		t.Fatalf("missing input placeholder: %q", out)
	}
}

func TestCommandRejectsUnknownOption(t *testing.T) {
	te := newTestEnv(t, "")
	code, _, errOut := te.run("command", "--layout", "rowz: 3")
	if code == 0 {
		t.Fatal("expected failure")
	}
	if !strings.Contains(errOut, `did you mean "rows"`) {
		t.Fatalf("stderr=%q", errOut)
	}
}

func TestPanelizeDryRun(t *testing.T) {
	te := newTestEnv(t, "")
	out := te.path("panel.kicad_pcb")
	code, stdout, errOut := te.run("panelize", "--dry-run", "--dialect", "windows", "--cuts", "type: vcuts", te.input, out)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	if !strings.HasPrefix(stdout, "kikit panelize^") || !strings.Contains(stdout, "--cuts") {
		t.Fatalf("stdout=%q", stdout)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote output: %v", err)
	}
}

func TestPanelizeWritesPanelAndHistory(t *testing.T) {
	te := newTestEnv(t, "")
	out := te.path("panel.kicad_pcb")
	code, _, errOut := te.run("panelize", "--layout", "rows: 2; cols: 2", te.input, out)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	panel, err := memboard.Load(out)
	if err != nil {
		t.Fatalf("load panel: %v", err)
	}
	src, _ := memboard.Load(te.input)
	if got, want := len(panel.Footprints()), 4*len(src.Footprints()); got != want {
		t.Fatalf("footprints = %d, want %d", got, want)
	}

	code, stdout, errOut := te.run("history")
	if code != 0 {
		t.Fatalf("history code=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(stdout, "succeeded") || !strings.Contains(stdout, out) {
		t.Fatalf("history=%q", stdout)
	}
}

func TestPanelizeFailureIsRecorded(t *testing.T) {
	te := newTestEnv(t, "")
	out := te.path("panel.kicad_pcb")
	code, _, _ := te.run("panelize", "--layout", "rows: zero", te.input, out)
	if code == 0 {
		t.Fatal("expected failure for malformed rows")
	}
	_, stdout, _ := te.run("history")
	if !strings.Contains(stdout, "failed") {
		t.Fatalf("history=%q", stdout)
	}
}

func TestHistoryDisabled(t *testing.T) {
	te := newTestEnv(t, "")
	t.Setenv("GPZ_HISTORY_ENABLED", "false")
	code, _, errOut := te.run("history")
	if code == 0 || !strings.Contains(errOut, "history is disabled") {
		t.Fatalf("code=%d stderr=%q", code, errOut)
	}
}

func TestPreviewReplacesLiveBoard(t *testing.T) {
	te := newTestEnv(t, "")
	livePath := te.path("live.kicad_pcb")
	if err := boardtest.Sample("live").Save(livePath); err != nil {
		t.Fatal(err)
	}
	out := te.path("panel.kicad_pcb")
	sheet := filepath.Join(te.dir, "sheet", "job.pdf")

	code, _, _ := te.run("preview", "--live", livePath, "--layout", "rows: 1; cols: 2", te.input, out)
	if code == 0 {
		t.Fatal("non-empty live board replaced without --yes")
	}

	code, stdout, errOut := te.run("preview", "--yes", "--live", livePath, "--sheet", sheet,
		"--layout", "rows: 1; cols: 2", te.input, out)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(stdout, "Preview placed into") {
		t.Fatalf("stdout=%q", stdout)
	}
	live, err := memboard.Load(livePath)
	if err != nil {
		t.Fatalf("reload live: %v", err)
	}
	src, _ := memboard.Load(te.input)
	if got, want := len(live.Footprints()), 2*len(src.Footprints()); got != want {
		t.Fatalf("live footprints = %d, want %d", got, want)
	}
	// the panel plus the preview marker
	if got, want := len(live.Drawings()), 2*len(src.Drawings())+1; got < want {
		t.Fatalf("live drawings = %d, want at least %d", got, want)
	}
	data, err := os.ReadFile(sheet)
	if err != nil || !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("sheet not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(te.dir, "config", "last-preset.json")); err != nil {
		t.Fatalf("preset not remembered: %v", err)
	}
}

func TestDiffFromJSONAndCommand(t *testing.T) {
	te := newTestEnv(t, "")
	js := te.path("p.json")
	if err := os.WriteFile(js, []byte(`{"layout": {"rows": "2", "cols": "1"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := te.run("diff", js)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(out, `"rows": "2"`) || strings.Contains(out, `"cols"`) {
		t.Fatalf("diff=%s", out)
	}

	cmdFile := te.path("cmd.sh")
	text := command.Render(preset.Preset{"layout": {"rows": "5"}}, command.POSIX, te.input, "out.kicad_pcb")
	if err := os.WriteFile(cmdFile, []byte(text+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut = te.run("diff", "--from-command", cmdFile)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(out, `"rows": "5"`) {
		t.Fatalf("diff=%s", out)
	}
}

func TestFabDelegatesToEngineCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX echo")
	}
	echo, err := exec.LookPath("echo")
	if err != nil {
		t.Skip("echo not available")
	}
	te := newTestEnv(t, "")
	t.Setenv("GPZ_ENGINE_COMMAND", echo)
	code, out, errOut := te.run("fab", "jlcpcb", "--no-drc", "--assembly", te.input, te.path("fab"))
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(out, "fab jlcpcb --no-drc --assembly "+te.input) {
		t.Fatalf("out=%q", out)
	}
}

func TestFabRejectsOshparkAssembly(t *testing.T) {
	te := newTestEnv(t, "")
	if code, _, _ := te.run("fab", "oshpark", "--assembly", te.input, te.path("fab")); code == 0 {
		t.Fatal("expected failure")
	}
}
