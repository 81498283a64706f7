package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/route-matcher/internal/extract"
	"github.com/route-matcher/internal/history"
	"github.com/route-matcher/internal/parse"
	"github.com/route-matcher/internal/reference"
	"github.com/route-matcher/internal/route"
)

func createProcessCmd() *cobra.Command {
	var (
		outputDir string
		strategy  string
		writeXLSX bool
	)

	cmd := &cobra.Command{
		Use:   "process [manifest] [reference]",
		Short: "Build a route from a manifest and a reference table",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if strategy != "" {
				settings.Parser.Strategy = strategy
			}
			if writeXLSX {
				settings.Output.WriteXLSX = true
			}
			if outputDir == "" {
				outputDir = settings.Paths.Output
			}

			pipeline, err := route.NewPipeline(settings)
			if err != nil {
				log.Fatalf("Failed to configure pipeline: %v", err)
			}

			report, err := pipeline.Process(args[0], args[1], outputDir)
			if err != nil {
				log.Fatalf("Failed to build route: %v", err)
			}
			printReport(report)

			store, err := openHistory()
			if err != nil {
				log.Printf("Run not recorded: %v", err)
				return
			}
			if store == nil {
				return
			}
			defer store.Close()

			run := history.FromReport(filepath.Base(args[0]), filepath.Base(args[1]), report)
			id, err := store.RecordRun(settings.Debug, run)
			if err != nil {
				log.Printf("Run not recorded: %v", err)
				return
			}
			fmt.Printf("Run ID: %s\n", id)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default paths.output)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Candidate parser: block, address or weight")
	cmd.Flags().BoolVar(&writeXLSX, "xlsx", false, "Also write an .xlsx copy of the route")
	return cmd
}

func printReport(r *route.Report) {
	fmt.Printf("Route:        %s\n", r.OutputPath)
	if r.XLSXPath != "" {
		fmt.Printf("Workbook:     %s\n", r.XLSXPath)
	}
	fmt.Printf("Strategy:     %s\n", r.Strategy)
	fmt.Printf("Match column: %s\n", r.MatchColumn)
	if r.CityColumn != "" {
		fmt.Printf("City column:  %s\n", r.CityColumn)
	}
	fmt.Printf("Found:        %d of %d\n", r.FoundCount, r.TotalCount)
	if r.TotalQuantity > 0 || r.TotalWeight > 0 {
		fmt.Printf("Load:         %d pcs, %s kg\n", r.TotalQuantity, route.FormatScore(r.TotalWeight))
	}

	if len(r.NotFound) > 0 {
		fmt.Println("\nNot found:")
		for _, line := range r.Annotated() {
			fmt.Printf("  %s\n", line)
		}
	}
}

func createColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns [reference]",
		Short: "Show the columns of a reference table and the ones used for matching",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			table, err := reference.Load(args[0])
			if err != nil {
				log.Fatalf("Failed to load reference table: %v", err)
			}

			fmt.Printf("Rows:      %d\n", len(table.Rows))
			fmt.Printf("Columns:   %s\n", strings.Join(table.Columns, ", "))

			roles, err := reference.DetectRoles(table, settings.Columns)
			if err != nil {
				log.Fatalf("%v", err)
			}
			fmt.Printf("Address:   %s\n", orNone(roles.Address))
			fmt.Printf("Name:      %s\n", orNone(roles.Name))
			fmt.Printf("City:      %s\n", orNone(roles.City))
			fmt.Printf("Match on:  %s (%s)\n", roles.Match, roles.Rule)
		},
	}
}

func createLinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lines [manifest]",
		Short: "Print the text lines extracted from a manifest",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for i, line := range extract.NewFileExtractor(settings.Debug).Lines(args[0]) {
				fmt.Printf("%4d  %s\n", i+1, line)
			}
		},
	}
}

func createCandidatesCmd() *cobra.Command {
	var strategy string

	cmd := &cobra.Command{
		Use:   "candidates [manifest]",
		Short: "Print the stops the parser finds in a manifest",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if strategy != "" {
				settings.Parser.Strategy = strategy
			}
			rules, err := parse.NewRules(settings.Parser)
			if err != nil {
				log.Fatalf("Invalid parser rules: %v", err)
			}
			rules.Debug = settings.Debug
			parser, err := parse.New(settings.Parser.Strategy, rules)
			if err != nil {
				log.Fatalf("%v", err)
			}

			lines := extract.NewFileExtractor(settings.Debug).Lines(args[0])
			candidates := parser.Parse(lines)
			for i, c := range candidates {
				fmt.Printf("%3d  %s", i+1, c.Key)
				if c.City != "" {
					fmt.Printf("  [%s]", c.City)
				}
				if c.HasLoad() {
					fmt.Printf("  %d pcs %s kg", c.Quantity, route.FormatScore(c.Weight))
				}
				fmt.Println()
			}
			fmt.Printf("\n%d candidates from %d lines (%s)\n", len(candidates), len(lines), settings.Parser.Strategy)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "Candidate parser: block, address or weight")
	return cmd
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
