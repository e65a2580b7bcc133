/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.Kind != "exec" || cfg.Engine.Command != "kikit" || cfg.Engine.HostMajor != 8 {
		t.Fatalf("unexpected engine defaults: %#v", cfg.Engine)
	}
	if !cfg.History.Enabled || !cfg.General.RememberPreset {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	cfg := Defaults()
	cfg.General.Dialect = "windows"
	cfg.Engine.Kind = "grid"
	cfg.History.DSN = "postgres://localhost/panels"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.General.Dialect != "windows" || got.Engine.Kind != "grid" || got.History.DSN != "postgres://localhost/panels" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestLoadFileRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err == nil {
		t.Fatalf("expected yaml error")
	}
	if cfg.Engine.Command != "kikit" {
		t.Fatalf("defaults should survive a broken file: %#v", cfg.Engine)
	}
}

func TestEnvOverridesEngineAndHistory(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	t.Setenv(EnvEngine, "GRID")
	t.Setenv(EnvEngineCommand, "/opt/kikit/bin/kikit")
	t.Setenv(EnvHostMajor, "7")
	t.Setenv(EnvHistoryEnabled, "off")
	t.Setenv(EnvHistoryDSN, "/tmp/h.db")
	t.Setenv(EnvDialect, "Windows")
	t.Setenv(EnvTelemetryOptIn, "yes")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.Kind != "grid" || cfg.Engine.Command != "/opt/kikit/bin/kikit" || cfg.Engine.HostMajor != 7 {
		t.Fatalf("engine overrides not applied: %#v", cfg.Engine)
	}
	if cfg.History.Enabled || cfg.History.DSN != "/tmp/h.db" {
		t.Fatalf("history overrides not applied: %#v", cfg.History)
	}
	if cfg.General.Dialect != "windows" || !cfg.General.TelemetryOptIn {
		t.Fatalf("general overrides not applied: %#v", cfg.General)
	}
	if env, ok := EnvOverrideFor("engine.kind"); !ok || env != EnvEngine {
		t.Fatalf("EnvOverrideFor(engine.kind) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("telemetry.events_url"); ok {
		t.Fatalf("events_url has no env override")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/gpz.log"
	mergeInto(&dst, &src, allBools(src))
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/gpz.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestLoadFileKeepsBooleanDefaultsForAbsentKeys(t *testing.T) {
	t.Setenv(EnvHistoryEnabled, "")
	t.Setenv(EnvTelemetryOptIn, "")
	t.Setenv(EnvLogSource, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.General.RememberPreset || !cfg.History.Enabled {
		t.Fatalf("absent booleans lost their defaults: %#v", cfg)
	}
	if cfg.Logging.Level != "error" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}

	yml := "general:\n  remember_preset: false\nhistory:\n  enabled: false\nlogging:\n  source: true\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.RememberPreset || cfg.History.Enabled || !cfg.Logging.Source {
		t.Fatalf("explicit booleans not applied: %#v", cfg)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/gpz.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/gpz.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestHistoryDSNDefaultsToConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	dsn, err := Defaults().HistoryDSN()
	if err != nil {
		t.Fatal(err)
	}
	if dsn != filepath.Join(dir, "history.db") {
		t.Fatalf("dsn = %q", dsn)
	}
}

func TestTokenStoreUsesKeyring(t *testing.T) {
	keyring.MockInit()
	if got := Token(); got != "" {
		t.Fatalf("expected no token, got %q", got)
	}
	if err := SetToken("abc"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if got := Token(); got != "abc" {
		t.Fatalf("Token() = %q", got)
	}
	if err := SetToken(""); err != nil {
		t.Fatalf("delete token: %v", err)
	}
	if err := SetToken(""); err != nil {
		t.Fatalf("deleting a missing token must succeed: %v", err)
	}
	if got := Token(); got != "" {
		t.Fatalf("token not deleted: %q", got)
	}
}
