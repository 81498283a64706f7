// Package extract pulls ordered text lines out of manifest documents.
package extract

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/route-matcher/internal/debug"
	"github.com/route-matcher/internal/normalize"
)

// Extractor returns the non-empty trimmed lines of a document in reading order.
// A document that cannot be read yields an empty slice, never an error.
type Extractor interface {
	Lines(path string) []string
}

// PDFExtractor reads the text layer of a PDF page by page.
type PDFExtractor struct {
	Debug bool
	// GapFactor is the horizontal gap, relative to the font size, above which
	// two glyph runs on one row are joined with a space.
	GapFactor float64
}

// NewPDFExtractor creates an extractor with the default gap factor.
func NewPDFExtractor(debugMode bool) *PDFExtractor {
	return &PDFExtractor{Debug: debugMode, GapFactor: 0.2}
}

// Lines implements Extractor.
func (e *PDFExtractor) Lines(path string) []string {
	defer debug.Timing(e.Debug, "pdf extraction")()

	lines, err := e.read(path)
	if err != nil {
		log.Printf("extract: %s: %v", path, err)
		return []string{}
	}
	debug.Output(e.Debug, "extracted %d lines from %s", len(lines), path)
	if lines == nil {
		return []string{}
	}
	return lines
}

func (e *PDFExtractor) read(path string) (lines []string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageLines, perr := e.pageLines(page)
		if perr != nil {
			debug.Output(e.Debug, "page %d skipped: %v", i, perr)
			continue
		}
		lines = append(lines, pageLines...)
	}
	return lines, nil
}

func (e *PDFExtractor) pageLines(page pdf.Page) ([]string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, row := range rows {
		if line := normalize.Text(e.joinRow(row.Content)); line != "" {
			out = append(out, normalize.Squash(line))
		}
	}
	return out, nil
}

// joinRow concatenates the glyph runs of one row, inserting a space where the
// horizontal gap between runs is wider than GapFactor * font size.
func (e *PDFExtractor) joinRow(texts []pdf.Text) string {
	var b strings.Builder
	var prevEnd float64
	for i, t := range texts {
		if i > 0 && t.FontSize > 0 && t.W > 0 {
			if t.X-prevEnd > e.GapFactor*t.FontSize && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return b.String()
}

// SplitText turns a text blob into the same line form Lines produces. It is
// used for manifests that arrive as plain text.
func SplitText(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = normalize.Squash(normalize.Text(line)); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FileExtractor reads PDF manifests through PDFExtractor and plain-text
// manifests (.txt) line by line.
type FileExtractor struct {
	PDF *PDFExtractor
}

// NewFileExtractor creates an extractor for PDF and text manifests.
func NewFileExtractor(debugMode bool) *FileExtractor {
	return &FileExtractor{PDF: NewPDFExtractor(debugMode)}
}

// Lines implements Extractor.
func (e *FileExtractor) Lines(path string) []string {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("extract: %s: %v", path, err)
			return []string{}
		}
		if lines := SplitText(string(data)); lines != nil {
			return lines
		}
		return []string{}
	}
	return e.PDF.Lines(path)
}
