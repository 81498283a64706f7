package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/route-matcher/internal/route"
	"github.com/route-matcher/internal/web"
)

func createRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded route runs",
		Run: func(cmd *cobra.Command, args []string) {
			store := mustHistory()
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				log.Fatalf("Failed to list runs: %v", err)
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  %3d/%-3d  %-8s  %s <- %s\n",
					r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.FoundCount, r.TotalCount,
					r.Strategy, r.Manifest, r.Reference)
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show one run with its unresolved stops",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := mustHistory()
			defer store.Close()

			r, err := store.GetRun(args[0])
			if err != nil {
				log.Fatalf("Failed to load run: %v", err)
			}
			fmt.Printf("Run:        %s (%s)\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Printf("Manifest:   %s\n", r.Manifest)
			fmt.Printf("Reference:  %s (match %s)\n", r.Reference, r.MatchColumn)
			fmt.Printf("Route:      %s\n", r.OutputPath)
			fmt.Printf("Found:      %d of %d\n", r.FoundCount, r.TotalCount)
			for _, u := range r.Unresolved {
				if u.Hint != "" {
					fmt.Printf("  %s ≈ %s (%s)\n", u.Key, u.Hint, route.FormatScore(u.HintScore))
				} else {
					fmt.Printf("  %s\n", u.Key)
				}
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := mustHistory()
			defer store.Close()

			if err := store.DeleteRun(args[0]); err != nil {
				log.Fatalf("Failed to delete run: %v", err)
			}
			fmt.Printf("Deleted run %s\n", args[0])
		},
	})

	return cmd
}

func createServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web front end",
		Run: func(cmd *cobra.Command, args []string) {
			if port != 0 {
				settings.Server.Port = port
			}
			if err := serve(); err != nil {
				log.Fatalf("%v", err)
			}
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default server.port)")
	return cmd
}

func serve() error {
	pipeline, err := route.NewPipeline(settings)
	if err != nil {
		return fmt.Errorf("failed to configure pipeline: %w", err)
	}

	store, err := openHistory()
	if err != nil {
		return err
	}

	// a nil *history.Store must not reach the server as a non-nil RunStore
	var server *web.Server
	if store != nil {
		defer store.Close()
		server, err = web.NewServer(settings, pipeline, store)
	} else {
		server, err = web.NewServer(settings, pipeline, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return server.Start()
}
