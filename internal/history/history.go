/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package history is the ledger of panelization runs. Runs are kept in a local SQLite
// file by default or in PostgreSQL when given a postgres:// DSN.
package history

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ulikunitz/xz"
	_ "modernc.org/sqlite"

	applog "gopanelize/internal/log"
	"gopanelize/internal/preset"
	"gopanelize/internal/version"
)

const schemaVersion = 1

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("history entry not found")

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry is one recorded run.
type Entry struct {
	ID       string
	Input    string
	Output   string
	Preset   preset.Preset
	Status   Status
	Message  string
	Trace    string
	Digest   string
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time of the run.
func (e Entry) Duration() time.Duration { return e.Finished.Sub(e.Started) }

// Store is an open history database.
type Store struct {
	db       *sql.DB
	postgres bool
	log      *slog.Logger
}

// IsPostgres reports whether dsn selects the PostgreSQL backend.
func IsPostgres(dsn string) bool {
	d := strings.ToLower(dsn)
	return strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://")
}

// Open connects to dsn and ensures the schema. A plain path opens a SQLite file,
// creating its directory.
func Open(ctx context.Context, dsn string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("history"), "open")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("history dsn is required")
	}
	s := &Store{postgres: IsPostgres(dsn), log: applog.WithComponent("history")}
	var err error
	if s.postgres {
		s.db, err = sql.Open("pgx", dsn)
	} else {
		s.db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			s.db.SetMaxOpenConns(1)
			s.db.SetMaxIdleConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		_ = s.db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		_ = s.db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("history ready", slog.Bool("postgres", s.postgres))
	return s, nil
}

func sqliteDSN(dsn string) string {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	if dir := filepath.Dir(dsn); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(dsn))
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(q string) string {
	if !s.postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	blob := "BLOB"
	if s.postgres {
		blob = "BYTEA"
	}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS version (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			schema     INTEGER NOT NULL,
			app        TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			input       TEXT NOT NULL,
			output      TEXT NOT NULL,
			preset_json TEXT NOT NULL,
			status      TEXT NOT NULL,
			message     TEXT NOT NULL,
			trace_xz    ` + blob + `,
			digest      TEXT NOT NULL,
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	}
	for _, q := range ddl {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO version (id, schema, app, updated_at) VALUES(1, ?, ?, ?)`), schemaVersion, version.String(), now)
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	case cur > schemaVersion:
		return fmt.Errorf("history schema %d is newer than supported %d", cur, schemaVersion)
	default:
		_, err = s.db.ExecContext(ctx, s.rebind(`UPDATE version SET app=?, updated_at=? WHERE id=1`), version.String(), now)
	}
	if err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	return nil
}

// Record inserts or replaces the entry with e.ID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return errors.New("history entry needs an id")
	}
	p, err := preset.Marshal(e.Preset)
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	trace, err := compress(e.Trace)
	if err != nil {
		return fmt.Errorf("compress trace: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM runs WHERE id=?`), e.ID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO runs
		(id, input, output, preset_json, status, message, trace_xz, digest, started_at, finished_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.Input, e.Output, string(p), string(e.Status), e.Message, trace, e.Digest,
		formatTime(e.Started), formatTime(e.Finished))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	s.log.Debug("run recorded", slog.String("job", e.ID), slog.String("status", string(e.Status)))
	return nil
}

const selectRuns = `SELECT id, input, output, preset_json, status, message, trace_xz, digest, started_at, finished_at FROM runs`

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := selectRuns + ` ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get loads one entry.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectRuns+` WHERE id=?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

func (s *Store) Close() error { return s.db.Close() }

type scanner interface{ Scan(dest ...any) error }

func scanEntry(sc scanner) (Entry, error) {
	var (
		e                 Entry
		p, status         string
		trace             []byte
		started, finished string
	)
	if err := sc.Scan(&e.ID, &e.Input, &e.Output, &p, &status, &e.Message, &trace, &e.Digest, &started, &finished); err != nil {
		return Entry{}, err
	}
	e.Status = Status(status)
	var err error
	if e.Preset, err = preset.Unmarshal([]byte(p)); err != nil {
		return Entry{}, fmt.Errorf("decode preset of %s: %w", e.ID, err)
	}
	if e.Trace, err = decompress(trace); err != nil {
		return Entry{}, fmt.Errorf("decode trace of %s: %w", e.ID, err)
	}
	e.Started, _ = time.Parse(time.RFC3339Nano, started)
	e.Finished, _ = time.Parse(time.RFC3339Nano, finished)
	return e, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func compress(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, s); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	r, err := xz.NewReader(bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
