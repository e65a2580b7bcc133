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
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"gopanelize/internal/version"
)

// Sheet is the content of a job sheet.
type Sheet struct {
	JobID     string
	Input     string
	Output    string
	Command   string
	Preset    string
	Digest    string
	Counts    Counts
	Thumbnail image.Image
	Generated time.Time
}

// WriteSheet renders s as a one-page A4 PDF at path.
func WriteSheet(path string, s Sheet) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Panel job "+s.JobID, false)
	pdf.SetAuthor("gopanelize "+version.String(), false)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(width, 9, "Panelization job sheet", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	gen := s.Generated
	if gen.IsZero() {
		gen = time.Now()
	}
	pdf.CellFormat(width, 5, fmt.Sprintf("Job %s, %s", s.JobID, gen.UTC().Format(time.RFC3339)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(28, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(width-28, 6, value, "", "L", false)
	}
	field("Input", s.Input)
	field("Output", s.Output)
	if s.Digest != "" {
		field("BLAKE3", s.Digest)
	}
	c := s.Counts
	field("Contents", fmt.Sprintf("%d drawings, %d footprints, %d tracks, %d zones, %d nets",
		c.Drawings, c.Footprints, c.Tracks, c.Zones, c.Nets))

	if s.Thumbnail != nil {
		var buf bytes.Buffer
		if err := EncodePNG(&buf, s.Thumbnail); err != nil {
			return fmt.Errorf("encode thumbnail: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("thumb", opts, &buf)
		b := s.Thumbnail.Bounds()
		h := width * float64(b.Dy()) / float64(b.Dx())
		pdf.Ln(2)
		pdf.ImageOptions("thumb", left, pdf.GetY(), width, h, true, opts, 0, "")
		pdf.Ln(2)
	}

	if s.Command != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(width, 7, "Command", "", 1, "L", false, 0, "")
		pdf.SetFont("Courier", "", 8)
		pdf.MultiCell(width, 4, s.Command, "1", "L", false)
		pdf.Ln(2)
	}
	if s.Preset != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(width, 7, "Preset", "", 1, "L", false, 0, "")
		pdf.SetFont("Courier", "", 8)
		pdf.MultiCell(width, 4, s.Preset, "1", "L", false)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render sheet: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
