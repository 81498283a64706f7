// Package route writes matched stops as a route file and runs the
// manifest-to-route pipeline.
package route

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/route-matcher/internal/debug"
	"github.com/route-matcher/internal/match"
	"github.com/route-matcher/internal/parse"
	"github.com/route-matcher/internal/reference"
)

// Fixed route columns.
const (
	ColOrder        = "order"
	ColSourceKey    = "source_key"
	ColSourceName   = "source_name"
	ColSourceCity   = "source_city"
	ColQuantity     = "quantity"
	ColWeight       = "weight"
	ColMatchedValue = "matched_value"
	ColScore        = "score"

	refPrefix = "ref_"
)

// Exporter writes route files.
type Exporter struct {
	WriteXLSX bool
	Debug     bool
	// now is replaceable in tests
	now func() time.Time
}

// NewExporter creates an exporter.
func NewExporter(writeXLSX, debugMode bool) *Exporter {
	return &Exporter{WriteXLSX: writeXLSX, Debug: debugMode, now: time.Now}
}

// column maps one output column to its source.
type column struct {
	name   string
	refIdx int // -1 for derived columns
}

// Layout returns the output columns: order, source fields, optional load
// fields, the role columns of the reference table prefixed with "ref_",
// matched value, score, then every other reference column in table order.
func Layout(table *reference.Table, roles reference.Roles, withLoad bool) []string {
	cols := layout(table, roles, withLoad)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func layout(table *reference.Table, roles reference.Roles, withLoad bool) []column {
	derived := []string{ColOrder, ColSourceKey, ColSourceName, ColSourceCity}
	if withLoad {
		derived = append(derived, ColQuantity, ColWeight)
	}

	var cols []column
	taken := make(map[string]bool)
	add := func(name string, idx int) {
		taken[name] = true
		cols = append(cols, column{name: name, refIdx: idx})
	}
	for _, name := range derived {
		add(name, -1)
	}

	roleCols := []string{roles.Match}
	if roles.City != "" {
		roleCols = append(roleCols, roles.City)
	}
	isRole := make(map[int]bool)
	for _, rc := range roleCols {
		idx := table.Index(rc)
		if idx < 0 || isRole[idx] {
			continue
		}
		isRole[idx] = true
		add(refPrefix+rc, idx)
	}

	// reserve the trailing fixed names before placing the remaining columns
	taken[ColMatchedValue] = true
	taken[ColScore] = true

	var rest []column
	for idx, name := range table.Columns {
		if isRole[idx] {
			continue
		}
		for taken[name] {
			name = refPrefix + name
		}
		taken[name] = true
		rest = append(rest, column{name: name, refIdx: idx})
	}

	cols = append(cols, column{name: ColMatchedValue, refIdx: -1}, column{name: ColScore, refIdx: -1})
	return append(cols, rest...)
}

// Write stores the matched rows under outputDir and returns the run report.
// The file name is unique per run; an existing file is never overwritten.
func (e *Exporter) Write(outputDir string, candidates []parse.Candidate, outcome match.Outcome, table *reference.Table, roles reference.Roles) (*Report, error) {
	defer debug.Timing(e.Debug, "route export")()

	withLoad := false
	for _, c := range candidates {
		if c.HasLoad() {
			withLoad = true
			break
		}
	}

	report := &Report{
		FoundCount:  len(outcome.Results),
		TotalCount:  len(candidates),
		NotFound:    append([]string{}, outcome.Unresolved...),
		MatchColumn: roles.Match,
		CityColumn:  roles.City,
	}
	unresolved := make(map[string]bool, len(outcome.Unresolved))
	for _, key := range outcome.Unresolved {
		unresolved[key] = true
	}
	for _, h := range outcome.Hints {
		if unresolved[h.Key] {
			report.NearMisses = append(report.NearMisses, h)
		}
	}
	for _, r := range outcome.Results {
		report.TotalQuantity += r.Candidate.Quantity
		report.TotalWeight += r.Candidate.Weight
	}
	report.TotalWeight = round2(report.TotalWeight)

	cols := layout(table, roles, withLoad)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	records := make([][]string, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		records = append(records, e.record(cols, r, withLoad))
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := e.fileName(report)
	path := filepath.Join(outputDir, base+".csv")
	if err := writeCSV(path, header, records); err != nil {
		return nil, err
	}
	report.OutputPath = path

	if e.WriteXLSX {
		xlsxPath := filepath.Join(outputDir, base+".xlsx")
		if err := writeXLSX(xlsxPath, header, records); err != nil {
			return nil, fmt.Errorf("failed to write workbook: %w", err)
		}
		report.XLSXPath = xlsxPath
	}

	debug.Output(e.Debug, "wrote %d rows to %s", len(records), path)
	return report, nil
}

func (e *Exporter) record(cols []column, r match.Result, withLoad bool) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if c.refIdx >= 0 {
			if c.refIdx < len(r.Row) {
				out[i] = r.Row[c.refIdx]
			}
			continue
		}
		switch c.name {
		case ColOrder:
			out[i] = strconv.Itoa(r.Order)
		case ColSourceKey:
			out[i] = r.Candidate.Key
		case ColSourceName:
			out[i] = r.Candidate.Name
		case ColSourceCity:
			out[i] = r.Candidate.City
		case ColQuantity:
			if withLoad {
				out[i] = strconv.Itoa(r.Candidate.Quantity)
			}
		case ColWeight:
			if withLoad {
				out[i] = strconv.FormatFloat(r.Candidate.Weight, 'f', -1, 64)
			}
		case ColMatchedValue:
			out[i] = r.MatchedValue
		case ColScore:
			out[i] = FormatScore(r.Score)
		}
	}
	return out
}

// fileName is route_<timestamp>_<stops>st[_<weight>kg]_<id>.
func (e *Exporter) fileName(r *Report) string {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	parts := []string{"route", now().Format("20060102_150405"), fmt.Sprintf("%dst", r.FoundCount)}
	if r.TotalWeight > 0 {
		parts = append(parts, strconv.FormatFloat(r.TotalWeight, 'f', -1, 64)+"kg")
	}
	parts = append(parts, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return strings.Join(parts, "_")
}

func writeCSV(path string, header []string, records [][]string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create route file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return file.Close()
}

func writeXLSX(path string, header []string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Route"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", cells(header)); err != nil {
		return err
	}
	for i, rec := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, cells(rec)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func cells(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
