package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/reference"
	"github.com/route-matcher/internal/web/handlers"
	"github.com/route-matcher/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	settings   config.Settings
	handlers   *handlers.Config
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a web server for the route pipeline. runs may be nil,
// in which case run history is not recorded.
func NewServer(settings config.Settings, processor handlers.Processor, runs handlers.RunStore) (*Server, error) {
	dirs := handlers.Dirs{
		Uploads:    settings.Paths.Uploads,
		Output:     settings.Paths.Output,
		References: settings.Paths.References,
	}
	for _, dir := range []string{dirs.Uploads, dirs.Output, dirs.References} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	server := &Server{
		settings: settings,
		handlers: &handlers.Config{
			Dirs:        dirs,
			Processor:   processor,
			History:     runs,
			MaxUploadMB: settings.Server.MaxUploadMB,
			Debug:       settings.Debug,
		},
	}

	server.setupRoutes()

	timeout := time.Duration(settings.Server.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port),
		Handler:      server.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  60 * time.Second,
	}

	return server, nil
}

// Router returns the configured route table.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	columns := s.settings.Columns
	pageHandler := &handlers.PageHandler{Config: s.handlers}
	fileHandler := &handlers.FileHandler{Config: s.handlers}
	apiHandler := &handlers.APIHandler{
		Config: s.handlers,
		Columns: func(t *reference.Table) (reference.Roles, error) {
			return reference.DetectRoles(t, columns)
		},
	}

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", apiHandler.Health).Methods("GET")
	api.HandleFunc("/process", apiHandler.Process).Methods("POST", "OPTIONS")
	api.HandleFunc("/runs", apiHandler.ListRuns).Methods("GET", "OPTIONS")
	api.HandleFunc("/runs/{id}", apiHandler.GetRun).Methods("GET", "OPTIONS")
	api.HandleFunc("/references/{filename}/columns", apiHandler.ReferenceColumns).Methods("GET", "OPTIONS")

	// Pages
	s.router.HandleFunc("/", pageHandler.Index).Methods("GET")
	s.router.HandleFunc("/help", pageHandler.Help).Methods("GET")
	s.router.HandleFunc("/process", pageHandler.Process).Methods("POST")
	s.router.HandleFunc("/upload_reference", pageHandler.UploadReference).Methods("POST")

	// Table editors and downloads
	s.router.HandleFunc("/view_reference/{filename}", fileHandler.ViewReference).Methods("GET")
	s.router.HandleFunc("/save_reference/{filename}", fileHandler.SaveReference).Methods("POST")
	s.router.HandleFunc("/edit_route/{filename}", fileHandler.EditRoute).Methods("GET")
	s.router.HandleFunc("/save_route/{filename}", fileHandler.SaveRoute).Methods("POST")
	s.router.HandleFunc("/download/{filename}", fileHandler.Download).Methods("GET")

	// Apply middleware
	s.router.Use(middleware.RequestLogging())
	api.Use(middleware.CORS())

	if s.settings.Auth.Enabled {
		// Apply authentication middleware to API routes only
		api.Use(middleware.Authentication(s.settings.Auth.APIKey))
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errs := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on http://%s\n", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	fmt.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	fmt.Println("Server stopped")
	return nil
}
