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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"gopanelize/internal/storage"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	// Dialect is the shell the generated command targets: "posix", "windows" or "" for the platform default.
	Dialect        string `yaml:"dialect"`
	RememberPreset bool   `yaml:"remember_preset"`
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
}

type EngineConfig struct {
	// Kind is "exec" (external kikit) or "grid" (built-in reference engine).
	Kind string `yaml:"kind"`
	// Command is the executable used by the exec engine.
	Command string `yaml:"command"`
	// HostMajor is the major version reported by the headless host.
	HostMajor int `yaml:"host_major"`
}

type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// DSN is a sqlite path or a postgres:// URL. Empty means history.db next to the config file.
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type TelemetryConfig struct {
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Engine        EngineConfig    `yaml:"engine"`
	History       HistoryConfig   `yaml:"history"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{RememberPreset: true},
		Engine:        EngineConfig{Kind: "exec", Command: "kikit", HostMajor: 8},
		History:       HistoryConfig{Enabled: true},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvDialect        = "GPZ_DIALECT"
	EnvEngine         = "GPZ_ENGINE"
	EnvEngineCommand  = "GPZ_ENGINE_COMMAND"
	EnvHostMajor      = "GPZ_HOST_MAJOR"
	EnvHistoryDSN     = "GPZ_HISTORY_DSN"
	EnvHistoryEnabled = "GPZ_HISTORY_ENABLED"
	EnvTelemetryOptIn = "GPZ_TELEMETRY_OPT_IN"
	// EnvConfigDir relocates the whole config directory.
	EnvConfigDir = "GPZ_CONFIG_DIR"
	EnvLogLevel  = "GPZ_LOG_LEVEL"
	EnvLogFormat = "GPZ_LOG_FORMAT"
	EnvLogSource = "GPZ_LOG_SOURCE"
	EnvLogFile   = "GPZ_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "gopanelize"
	keyringToken   = "telemetry_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the keyring backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// Token returns the telemetry token, or "" if none is stored.
func Token() string {
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if err != nil {
		return ""
	}
	return tok
}

// SetToken stores the telemetry token; an empty token deletes it.
func SetToken(tok string) error {
	if tok == "" {
		err := tokenStore.Delete(keyringService, keyringToken)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return tokenStore.Set(keyringService, keyringToken, tok)
}

// Dir returns the per-user config directory.
func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "gopanelize"), nil
	case "darwin":
		base = os.Getenv("HOME")
		if base == "" {
			return "", errors.New("cannot resolve config directory")
		}
		return filepath.Join(base, "Library", "Application Support", "gopanelize"), nil
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home := os.Getenv("HOME")
			if home == "" {
				return "", errors.New("cannot resolve config directory")
			}
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, "gopanelize"), nil
	}
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// HistoryDSN returns the configured DSN or the default sqlite file in the config dir.
func (c AppConfig) HistoryDSN() (string, error) {
	if c.History.DSN != "" {
		return c.History.DSN, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Load reads the user config (if present) over the defaults and applies env overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit path. A missing file is not an error.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		var set fileBools
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &set); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, err
		}
		mergeInto(&cfg, &fileCfg, set)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg to path.
func SaveFile(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, data)
}

// fileBools records which boolean keys the YAML file sets; absent keys keep their defaults.
type fileBools struct {
	General struct {
		RememberPreset *bool `yaml:"remember_preset"`
		TelemetryOptIn *bool `yaml:"telemetry_opt_in"`
	} `yaml:"general"`
	History struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"history"`
	Logging struct {
		Source *bool `yaml:"source"`
	} `yaml:"logging"`
}

// allBools marks every boolean of cfg as set.
func allBools(cfg AppConfig) fileBools {
	var b fileBools
	b.General.RememberPreset = &cfg.General.RememberPreset
	b.General.TelemetryOptIn = &cfg.General.TelemetryOptIn
	b.History.Enabled = &cfg.History.Enabled
	b.Logging.Source = &cfg.Logging.Source
	return b
}

func mergeInto(dst *AppConfig, src *AppConfig, set fileBools) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.General.Dialect); v != "" {
		dst.General.Dialect = strings.ToLower(v)
	}
	if set.General.RememberPreset != nil {
		dst.General.RememberPreset = *set.General.RememberPreset
	}
	if set.General.TelemetryOptIn != nil {
		dst.General.TelemetryOptIn = *set.General.TelemetryOptIn
	}
	if v := strings.TrimSpace(src.Engine.Kind); v != "" {
		dst.Engine.Kind = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Engine.Command); v != "" {
		dst.Engine.Command = v
	}
	if src.Engine.HostMajor != 0 {
		dst.Engine.HostMajor = src.Engine.HostMajor
	}
	if set.History.Enabled != nil {
		dst.History.Enabled = *set.History.Enabled
	}
	if v := strings.TrimSpace(src.History.DSN); v != "" {
		dst.History.DSN = v
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	if set.Logging.Source != nil {
		dst.Logging.Source = *set.Logging.Source
	}
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	if v := strings.TrimSpace(src.Telemetry.EventsURL); v != "" {
		dst.Telemetry.EventsURL = v
	}
	if v := strings.TrimSpace(src.Telemetry.CrashURL); v != "" {
		dst.Telemetry.CrashURL = v
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDialect)); v != "" {
		cfg.General.Dialect = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvEngine)); v != "" {
		cfg.Engine.Kind = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvEngineCommand)); v != "" {
		cfg.Engine.Command = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHostMajor)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.HostMajor = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryDSN)); v != "" {
		cfg.History.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryEnabled)); v != "" {
		cfg.History.Enabled = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := map[string]string{
		"general.dialect":          EnvDialect,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"engine.kind":              EnvEngine,
		"engine.command":           EnvEngineCommand,
		"engine.host_major":        EnvHostMajor,
		"history.dsn":              EnvHistoryDSN,
		"history.enabled":          EnvHistoryEnabled,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
