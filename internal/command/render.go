/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package command converts preset diffs to and from panelizer command lines.
// Rendered commands are for display and copy-paste only; nothing here executes them.
package command

import (
	"fmt"
	"runtime"
	"strings"

	"gopanelize/internal/preset"
)

// Dialect selects the shell a rendered command targets.
type Dialect int

const (
	POSIX Dialect = iota
	Windows
)

func (d Dialect) String() string {
	if d == Windows {
		return "windows"
	}
	return "posix"
}

// ParseDialect accepts "posix"/"unix"/"sh" and "windows"/"cmd" (any case).
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "posix", "unix", "sh", "bash", "linux", "macos":
		return POSIX, nil
	case "windows", "cmd", "win":
		return Windows, nil
	}
	return POSIX, fmt.Errorf("unknown shell dialect %q", s)
}

// PlatformDialect is the dialect matching the running OS.
func PlatformDialect() Dialect {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return POSIX
}

// Program is the command the rendering starts with.
const Program = "kikit panelize"

// Placeholders substituted for unset paths.
const (
	MissingInput  = "<missingInput>"
	MissingOutput = "<missingOutput>"
)

// SectionValue joins the options of one section as "k: v; k2: v2" in name order.
func SectionValue(sec preset.Section) string {
	names := sec.OptionNames()
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + ": " + preset.Stringify(sec[k])
	}
	return strings.Join(parts, "; ")
}

// Render prints diff as a multi-line panelizer invocation for the given shell.
// Sections are emitted in name order; empty sections are skipped.
func Render(diff preset.Preset, d Dialect, input, output string) string {
	if input == "" {
		input = MissingInput
	}
	if output == "" {
		output = MissingOutput
	}
	quote, head, cont := posixQuote, Program+" \\\n", " \\\n"
	if d == Windows {
		quote, head, cont = windowsQuote, Program+"^\n", " ^\n"
	}
	var b strings.Builder
	b.WriteString(head)
	for _, name := range diff.SectionNames() {
		b.WriteString("    --" + name + " " + quote(SectionValue(diff[name])) + cont)
	}
	b.WriteString("    " + quote(input) + " " + quote(output))
	return b.String()
}

func posixQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// windowsQuote doubles embedded quotes, the cmd.exe escape.
func windowsQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Args returns the invocation as argv (without the program) for direct execution.
func Args(diff preset.Preset, input, output string) []string {
	var args []string
	for _, name := range diff.SectionNames() {
		args = append(args, "--"+name, SectionValue(diff[name]))
	}
	return append(args, input, output)
}
