// Package reference loads the customer/address table that manifest stops are
// matched against and works out which of its columns to match on.
package reference

import (
	"fmt"
	"strings"
)

// Table is a reference table: ordered column names and rows aligned to them.
type Table struct {
	Columns   []string
	Rows      []Row
	Delimiter rune // delimiter the file was read with; 0 for spreadsheets
}

// Row holds one value per table column.
type Row []string

// NewTable builds a table from a header and raw records. Duplicate and empty
// header names are made unique, short records are padded and blank records skipped.
func NewTable(header []string, records [][]string) *Table {
	t := &Table{Columns: uniqueColumns(header)}
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make(Row, len(t.Columns))
		copy(row, rec)
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the value of column in row, or "" if the column does not exist.
func (t *Table) Value(row Row, column string) string {
	i := t.Index(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// ColumnValues returns every value of column in row order.
func (t *Table) ColumnValues(column string) []string {
	i := t.Index(column)
	if i < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

func uniqueColumns(header []string) []string {
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		for used[name] {
			suffix[h]++
			name = fmt.Sprintf("%s.%d", h, suffix[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
