package main

import (
	"fmt"
	"log"

	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/history"
	"github.com/route-matcher/internal/route"
	"github.com/route-matcher/internal/web"
)

func main() {
	config.LoadEnv()

	// configuration file comes from $ROUTE_CONFIG, defaulting to ./routegen.toml
	settings, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("=== Delivery Route Web Interface ===")
	fmt.Printf("Server: http://%s:%d\n", settings.Server.Host, settings.Server.Port)
	fmt.Printf("References: %s\n", settings.Paths.References)
	fmt.Printf("Output: %s\n", settings.Paths.Output)

	pipeline, err := route.NewPipeline(settings)
	if err != nil {
		log.Fatalf("Failed to configure pipeline: %v", err)
	}

	var server *web.Server
	if settings.History.DSN != "" {
		store, err := history.Open(settings.History.DSN)
		if err != nil {
			log.Fatalf("Failed to open run history: %v", err)
		}
		defer store.Close()
		fmt.Printf("Run history: %s\n", store.Driver())

		server, err = web.NewServer(settings, pipeline, store)
		if err != nil {
			log.Fatalf("Failed to create server: %v", err)
		}
	} else {
		fmt.Println("Run history: disabled")
		server, err = web.NewServer(settings, pipeline, nil)
		if err != nil {
			log.Fatalf("Failed to create server: %v", err)
		}
	}

	fmt.Println("\nFeatures enabled:")
	fmt.Printf("  • API authentication: %v\n", settings.Auth.Enabled)
	fmt.Printf("  • XLSX output: %v\n", settings.Output.WriteXLSX)
	fmt.Println()

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
