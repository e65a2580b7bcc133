/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// CompanionExts are the project metadata files written next to a board.
var CompanionExts = []string{".kicad_pro", ".kicad_prl"}

// ErrCopyMismatch is returned when a copied file does not hash to its source digest.
var ErrCopyMismatch = errors.New("copied file does not match source")

// ReplaceExt swaps the extension of file for ext. A missing leading dot in ext is added.
func ReplaceExt(file, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(file, filepath.Ext(file)) + ext
}

// WriteFileAtomic writes data to a temp file in the target directory, flushes it and
// renames it over path, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// CopyFile copies src to dst (overwriting dst) and returns the BLAKE3 digest of the bytes copied.
func CopyFile(src, dst string) (digest string, err error) {
	sf, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	h := blake3.New()
	if _, err := io.Copy(io.MultiWriter(df, h), sf); err != nil {
		return "", err
	}
	if err := df.Sync(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest returns the hex BLAKE3 digest of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CopyResult describes a CopyWithCompanions run.
type CopyResult struct {
	Path       string   // primary copy
	Digest     string   // BLAKE3 of the primary file
	Companions []string // companion copies that existed and were copied
}

// CopyWithCompanions copies the board file src to dst and, best-effort, its project
// metadata companions next to it. Only the primary file is required: missing
// companions are skipped. The primary copy is verified against the source digest.
func CopyWithCompanions(src, dst string) (CopyResult, error) {
	res := CopyResult{Path: dst}
	sum, err := CopyFile(src, dst)
	if err != nil {
		return res, fmt.Errorf("copy %s: %w", src, err)
	}
	got, err := Digest(dst)
	if err != nil {
		return res, fmt.Errorf("verify %s: %w", dst, err)
	}
	if got != sum {
		return res, fmt.Errorf("verify %s: %w", dst, ErrCopyMismatch)
	}
	res.Digest = sum
	for _, ext := range CompanionExts {
		from, to := ReplaceExt(src, ext), ReplaceExt(dst, ext)
		if _, err := CopyFile(from, to); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return res, fmt.Errorf("copy companion %s: %w", from, err)
		}
		res.Companions = append(res.Companions, to)
	}
	return res, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}
