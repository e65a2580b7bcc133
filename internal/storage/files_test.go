/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReplaceExt(t *testing.T) {
	cases := []struct{ in, ext, want string }{
		{"/tmp/panel.kicad_pcb", ".kicad_pro", "/tmp/panel.kicad_pro"},
		{"/tmp/panel-copy.kicad_pcb", "kicad_prl", "/tmp/panel-copy.kicad_prl"},
		{"noext", ".json", "noext.json"},
	}
	for _, c := range cases {
		if got := ReplaceExt(c.in, c.ext); got != c.want {
			t.Fatalf("ReplaceExt(%q, %q) = %q, want %q", c.in, c.ext, got, c.want)
		}
	}
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "out.json")
	if err := WriteFileAtomic(p, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(p, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "two" {
		t.Fatalf("content = %q", b)
	}
	ents, _ := os.ReadDir(filepath.Dir(p))
	if len(ents) != 1 {
		t.Fatalf("expected no temp leftovers, got %d entries", len(ents))
	}
}

func TestCopyWithCompanionsToleratesMissingCompanions(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	board := filepath.Join(src, "panel.kicad_pcb")
	if err := os.WriteFile(board, []byte("board"), 0o644); err != nil {
		t.Fatal(err)
	}
	// only the .kicad_pro companion exists
	if err := os.WriteFile(filepath.Join(src, "panel.kicad_pro"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := CopyWithCompanions(board, filepath.Join(dst, "panel-copy.kicad_pcb"))
	if err != nil {
		t.Fatalf("CopyWithCompanions: %v", err)
	}
	if len(res.Companions) != 1 || filepath.Base(res.Companions[0]) != "panel-copy.kicad_pro" {
		t.Fatalf("companions = %v", res.Companions)
	}
	want, _ := Digest(board)
	if res.Digest != want || res.Digest == "" {
		t.Fatalf("digest = %q, want %q", res.Digest, want)
	}
}

func TestCopyWithCompanionsRequiresPrimary(t *testing.T) {
	_, err := CopyWithCompanions(filepath.Join(t.TempDir(), "missing.kicad_pcb"), filepath.Join(t.TempDir(), "x.kicad_pcb"))
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
