package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/history"
)

var (
	configPath string
	debugMode  bool
	settings   config.Settings
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "routegen",
		Short: "Delivery route generator",
		Long:  `Matches the stops of a delivery manifest PDF against a reference table and writes an ordered route file`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()

			var err error
			settings, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if debugMode {
				settings.Debug = true
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to routegen.toml (default $ROUTE_CONFIG or ./routegen.toml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Print stage tracing")

	rootCmd.AddCommand(createProcessCmd())
	rootCmd.AddCommand(createColumnsCmd())
	rootCmd.AddCommand(createLinesCmd())
	rootCmd.AddCommand(createCandidatesCmd())
	rootCmd.AddCommand(createRunsCmd())
	rootCmd.AddCommand(createServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openHistory opens the run history if a DSN is configured. It returns nil
// when history is disabled.
func openHistory() (*history.Store, error) {
	if settings.History.DSN == "" {
		return nil, nil
	}
	store, err := history.Open(settings.History.DSN)
	if err != nil {
		return nil, fmt.Errorf("run history: %w", err)
	}
	return store, nil
}

func mustHistory() *history.Store {
	store, err := openHistory()
	if err != nil {
		log.Fatalf("Failed to open run history: %v", err)
	}
	if store == nil {
		log.Fatalf("Run history is disabled; set history.dsn or ROUTE_HISTORY_DSN")
	}
	return store
}
