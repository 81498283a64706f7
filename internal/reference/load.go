package reference

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte("\xEF\xBB\xBF")

// fallbackDelimiters are tried in order when sniffing fails.
var fallbackDelimiters = []rune{';', ',', '\t'}

// sniffDelimiters are the delimiters the sniffer considers.
var sniffDelimiters = []rune{',', ';', '\t', '|'}

// Load reads a reference table from path. Spreadsheets (.xlsx, .xlsm) are read
// from their first sheet; anything else is read as delimited text.
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	}
	return ReadDelimited(path)
}

// ReadDelimited reads a delimited text file, detecting the delimiter.
func ReadDelimited(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table %s: %w", path, err)
	}
	t, err := ParseDelimited(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference table %s: %w", path, err)
	}
	return t, nil
}

// ParseDelimited parses delimited text. The delimiter is sniffed first; if
// that fails ";", "," and tab are tried in order. The first attempt that
// parses cleanly wins, otherwise the last parse error is returned.
// Input that is not valid UTF-8 is decoded as Windows-1251.
func ParseDelimited(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode cp1251: %w", err)
		}
		data = decoded
	}

	var attempts []rune
	if d, ok := sniff(data); ok {
		attempts = append(attempts, d)
	}
	attempts = append(attempts, fallbackDelimiters...)

	var lastErr error
	for _, d := range attempts {
		t, err := parseWith(data, d)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func parseWith(data []byte, comma rune) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = 0
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.New("empty reference table")
	}
	if err != nil {
		return nil, err
	}
	if blank(header) {
		return nil, errors.New("reference table has an empty header")
	}
	// one column while the header holds another delimiter means the guess was wrong
	if len(header) == 1 {
		for _, other := range sniffDelimiters {
			if other != comma && strings.ContainsRune(header[0], other) {
				return nil, fmt.Errorf("delimiter %q leaves a single column %q", comma, header[0])
			}
		}
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	t := NewTable(header, records)
	t.Delimiter = comma
	return t, nil
}

// sniff picks the delimiter that occurs the same non-zero number of times on
// each of the first lines, preferring the most frequent one.
func sniff(data []byte) (rune, bool) {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimRight(line, "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		if len(lines) == 10 {
			break
		}
	}
	if len(lines) == 0 {
		return 0, false
	}

	var best rune
	bestCount := 0
	for _, d := range sniffDelimiters {
		count := countOutsideQuotes(lines[0], d)
		if count == 0 {
			continue
		}
		consistent := true
		for _, line := range lines[1:] {
			if countOutsideQuotes(line, d) != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best, bestCount = d, count
		}
	}
	return best, bestCount > 0
}

func countOutsideQuotes(line string, d rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}

// LoadXLSX reads the first sheet of a workbook. The first row is the header.
func LoadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 || blank(rows[0]) {
		return nil, fmt.Errorf("sheet %s of %s has no header row", sheets[0], path)
	}
	return NewTable(rows[0], rows[1:]), nil
}

// WriteFile saves the table to path, replacing it atomically. Spreadsheet
// paths get a workbook; anything else is written as delimited text using the
// delimiter the table was read with ("," for tables read from spreadsheets).
func (t *Table) WriteFile(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return t.writeXLSX(path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ref-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if t.Delimiter != 0 {
		w.Comma = t.Delimiter
	}
	if err := w.Write(t.Columns); err != nil {
		tmp.Close()
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (t *Table) writeXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", toCells(t.Columns)); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(path), ".ref-"+filepath.Base(path))
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return os.Rename(tmp, path)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
