/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package preset holds panelization configurations: layered loading, merging and
// minimal diffs. All comparisons are textual and case-insensitive, so "True", "true"
// and a boolean true are the same value everywhere (JSON export, command rendering,
// change detection).
package preset

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Section maps option names to loosely typed values.
type Section map[string]any

// Preset maps section names to their options. A diff has the same shape but is sparse.
type Preset map[string]Section

// Stringify renders a value the way it is compared and serialized.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []string:
		return strings.Join(x, ",")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ",")
	case interface{ String() string }:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Equal reports whether two values are the same under lower-cased string comparison.
// Differently cased free text compares equal; this is relied upon by Diff.
func Equal(a, b any) bool {
	return strings.ToLower(Stringify(a)) == strings.ToLower(Stringify(b))
}

// Copy returns a deep copy of p. List values are copied too.
func Copy(p Preset) Preset {
	out := make(Preset, len(p))
	for name, sec := range p {
		out[name] = sec.Copy()
	}
	return out
}

// Copy returns a copy of the section.
func (s Section) Copy() Section {
	out := make(Section, len(s))
	for k, v := range s {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// Merge applies overlay onto base in place. Options absent from overlay keep their
// base values; sections absent from base are created.
func Merge(base, overlay Preset) {
	for name, sec := range overlay {
		dst, ok := base[name]
		if !ok || dst == nil {
			dst = make(Section, len(sec))
			base[name] = dst
		}
		for k, v := range sec {
			dst[k] = copyValue(v)
		}
	}
}

// Diff computes the minimal overlay turning reference into target. A section missing
// from reference is taken whole; otherwise only options whose values are not Equal
// are kept. Sections without changes are omitted.
func Diff(reference, target Preset) Preset {
	out := Preset{}
	for name, sec := range target {
		ref, ok := reference[name]
		if !ok {
			if len(sec) > 0 {
				out[name] = sec.Copy()
			}
			continue
		}
		changed := Section{}
		for k, v := range sec {
			if rv, ok := ref[k]; ok && Equal(rv, v) {
				continue
			}
			changed[k] = copyValue(v)
		}
		if len(changed) > 0 {
			out[name] = changed
		}
	}
	return out
}

// IsEmpty reports whether p has no options at all.
func (p Preset) IsEmpty() bool {
	for _, sec := range p {
		if len(sec) > 0 {
			return false
		}
	}
	return true
}

// SectionNames returns the non-empty section names in sorted order.
func (p Preset) SectionNames() []string {
	names := make([]string, 0, len(p))
	for name, sec := range p {
		if len(sec) == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OptionNames returns the option names of s in sorted order.
func (s Section) OptionNames() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Get returns the string form of section.option and whether it was present.
func (p Preset) Get(section, option string) (string, bool) {
	sec, ok := p[section]
	if !ok {
		return "", false
	}
	v, ok := sec[option]
	if !ok {
		return "", false
	}
	return Stringify(v), true
}

// Set assigns section.option, creating the section if needed.
func (p Preset) Set(section, option string, v any) {
	sec, ok := p[section]
	if !ok || sec == nil {
		sec = Section{}
		p[section] = sec
	}
	sec[option] = v
}
