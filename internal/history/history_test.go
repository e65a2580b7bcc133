/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package history

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopanelize/internal/preset"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "history.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	trace := strings.Repeat("goroutine 1 [running]:\n", 50)
	e := Entry{
		ID: "job-1", Input: "a.kicad_pcb", Output: "b.kicad_pcb",
		Preset: preset.Preset{"layout": {"rows": "3"}},
		Status: StatusFailed, Message: "engine failed", Trace: trace,
		Digest: "abc", Started: t0, Finished: t0.Add(1500 * time.Millisecond),
	}
	if err := s.Record(ctx, e); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Trace != trace || got.Message != e.Message || got.Status != StatusFailed {
		t.Fatalf("entry mismatch: %+v", got)
	}
	if v, _ := got.Preset.Get("layout", "rows"); v != "3" {
		t.Fatalf("preset rows = %q", v)
	}
	if got.Duration() != 1500*time.Millisecond {
		t.Fatalf("duration = %v", got.Duration())
	}

	e.Status, e.Message, e.Trace = StatusSucceeded, "", ""
	if err := s.Record(ctx, e); err != nil {
		t.Fatalf("re-Record: %v", err)
	}
	got, _ = s.Get(ctx, "job-1")
	if got.Status != StatusSucceeded || got.Trace != "" {
		t.Fatalf("replace failed: %+v", got)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	t0 := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		e := Entry{ID: id, Status: StatusSucceeded, Preset: preset.Preset{}, Started: t0.Add(time.Duration(i) * time.Minute)}
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}
	all, err := s.List(ctx, 0)
	if err != nil || len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("List = %v, %v", all, err)
	}
	two, _ := s.List(ctx, 2)
	if len(two) != 2 || two[1].ID != "b" {
		t.Fatalf("List(2) = %v", two)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v", err)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.sqlite")
	ctx := context.Background()
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s.Record(ctx, Entry{ID: "x", Preset: preset.Preset{}, Status: StatusSucceeded})
	_ = s.Close()
	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, "x"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}

func TestRebind(t *testing.T) {
	s := &Store{postgres: true}
	if got := s.rebind("a=? AND b=?"); got != "a=$1 AND b=$2" {
		t.Fatalf("rebind = %q", got)
	}
	if !IsPostgres("postgresql://u@h/db") || IsPostgres("/tmp/x.sqlite") {
		t.Fatalf("IsPostgres misclassified")
	}
}
