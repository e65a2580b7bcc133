/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package report

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gopanelize/internal/board/boardtest"
	"gopanelize/internal/board/memboard"
)

func TestThumbnailDrawsOutline(t *testing.T) {
	img := Thumbnail(boardtest.Sample("x"), 120, 100, "panel.kicad_pcb")
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 100 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	edges := 0
	for y := 0; y < 100; y++ {
		for x := 0; x < 120; x++ {
			if img.RGBAAt(x, y) == edgeColor {
				edges++
			}
		}
	}
	if edges == 0 {
		t.Fatalf("no edge pixels drawn")
	}
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestThumbnailEmptyBoard(t *testing.T) {
	img := Thumbnail(memboard.New(), 64, 48, "")
	if img.RGBAAt(32, 20) != background {
		t.Fatalf("empty board should render background only")
	}
}

func TestCountsOf(t *testing.T) {
	got := CountsOf(boardtest.Sample(""))
	want := boardtest.Counts(boardtest.Sample(""))
	if got.Drawings != want[0] || got.Footprints != want[1] || got.Tracks != want[2] || got.Zones != want[3] || got.Nets != want[4] {
		t.Fatalf("CountsOf = %+v, want %v", got, want)
	}
}

func TestWriteSheet(t *testing.T) {
	doc := boardtest.Sample("")
	out := filepath.Join(t.TempDir(), "sheets", "job.pdf")
	err := WriteSheet(out, Sheet{
		JobID:     "j1",
		Input:     "a.kicad_pcb",
		Output:    "b.kicad_pcb",
		Command:   "kikit panelize \\\n    --layout 'rows: 3' \\\n    'a.kicad_pcb' 'b.kicad_pcb'",
		Preset:    "{\n    \"layout\": {\n        \"rows\": \"3\"\n    }\n}",
		Counts:    CountsOf(doc),
		Thumbnail: Thumbnail(doc, 200, 150, "b.kicad_pcb"),
	})
	if err != nil {
		t.Fatalf("WriteSheet: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("not a PDF: %q", b[:8])
	}
}
