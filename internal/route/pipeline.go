package route

import (
	"errors"
	"fmt"
	"os"

	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/debug"
	"github.com/route-matcher/internal/extract"
	"github.com/route-matcher/internal/match"
	"github.com/route-matcher/internal/parse"
	"github.com/route-matcher/internal/reference"
)

// Pipeline turns a manifest and a reference table into a route file.
// It holds configuration only; every Process call reads its inputs afresh.
type Pipeline struct {
	Extractor extract.Extractor
	Parser    parse.Parser
	Strategy  string
	Matcher   *match.Matcher
	Columns   config.ColumnSettings
	Exporter  *Exporter
	Debug     bool
}

// NewPipeline wires a pipeline from settings.
func NewPipeline(cfg config.Settings) (*Pipeline, error) {
	rules, err := parse.NewRules(cfg.Parser)
	if err != nil {
		return nil, fmt.Errorf("parser rules: %w", err)
	}
	rules.Debug = cfg.Debug

	parser, err := parse.New(cfg.Parser.Strategy, rules)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Extractor: extract.NewFileExtractor(cfg.Debug),
		Parser:    parser,
		Strategy:  cfg.Parser.Strategy,
		Matcher:   match.FromSettings(cfg.Matching, cfg.Debug),
		Columns:   cfg.Columns,
		Exporter:  NewExporter(cfg.Output.WriteXLSX, cfg.Debug),
		Debug:     cfg.Debug,
	}, nil
}

// Process extracts candidates from manifestPath, matches them against the
// table at referencePath and writes the route under outputDir.
//
// Input problems (unreadable files, no usable match column) are returned as
// errors. A manifest without text is not an error: the report has zero
// counts and points at a header-only route file.
func (p *Pipeline) Process(manifestPath, referencePath, outputDir string) (*Report, error) {
	debug.Header(p.Debug, "process route")
	defer debug.Timing(p.Debug, "process route")()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	table, err := reference.Load(referencePath)
	if err != nil {
		return nil, err
	}
	roles, err := reference.DetectRoles(table, p.Columns)
	if err != nil {
		var colErr *reference.ColumnError
		if errors.As(err, &colErr) {
			colErr.Path = referencePath
		}
		return nil, err
	}
	debug.Output(p.Debug, "reference %s: %d rows, match column %q (%s), city column %q",
		referencePath, len(table.Rows), roles.Match, roles.Rule, roles.City)

	lines := p.Extractor.Lines(manifestPath)
	candidates := p.Parser.Parse(lines)
	debug.Output(p.Debug, "%d lines -> %d candidates (%s)", len(lines), len(candidates), p.Strategy)

	outcome, err := p.Matcher.Match(candidates, table, roles.Match, roles.City)
	if err != nil {
		return nil, err
	}

	report, err := p.Exporter.Write(outputDir, candidates, outcome, table, roles)
	if err != nil {
		return nil, err
	}
	report.Strategy = p.Strategy
	return report, nil
}
