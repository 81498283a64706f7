package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"

	"github.com/route-matcher/internal/history"
	"github.com/route-matcher/internal/reference"
	"github.com/route-matcher/internal/route"
)

const recentRuns = 10

// PageHandler serves the HTML front end.
type PageHandler struct {
	Config *Config
}

// Index shows the upload forms, reference tables and recent runs.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, http.StatusOK, pageData{})
}

// UploadReference stores a reference table under the references directory.
// An existing table with the same name is replaced.
func (h *PageHandler) UploadReference(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(h.Config, w, r); err != nil {
		h.renderIndex(w, http.StatusBadRequest, pageData{Error: err.Error()})
		return
	}

	// a table the loader cannot read never replaces the stored one
	path, err := saveUpload(r, "ref_file", h.Config.Dirs.References, referenceExts, false, func(path string) error {
		_, err := reference.Load(path)
		return err
	})
	if err != nil {
		h.renderIndex(w, http.StatusBadRequest, pageData{Error: err.Error()})
		return
	}
	h.renderIndex(w, http.StatusOK, pageData{Message: fmt.Sprintf("Uploaded %s", filepath.Base(path))})
}

// Process runs the pipeline for an uploaded manifest and a stored reference
// table and renders the result of this request.
func (h *PageHandler) Process(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(h.Config, w, r); err != nil {
		h.renderIndex(w, http.StatusBadRequest, pageData{Error: err.Error()})
		return
	}

	report, runID, status, err := processUpload(h.Config, r)
	if err != nil {
		h.renderIndex(w, status, pageData{Error: err.Error()})
		return
	}

	h.renderIndex(w, http.StatusOK, pageData{
		Report:     report,
		Unresolved: report.Annotated(),
		RunID:      runID,
	})
}

// processUpload is shared by the page and the JSON endpoint. It returns the HTTP
// status to use when err is set.
func processUpload(cfg *Config, r *http.Request) (*route.Report, string, int, error) {
	refPath, err := resolve(cfg.Dirs.References, r.FormValue("reference_file"))
	if err != nil {
		return nil, "", http.StatusBadRequest, fmt.Errorf("reference table: %w", err)
	}
	if _, err := os.Stat(refPath); err != nil {
		return nil, "", http.StatusNotFound, fmt.Errorf("reference table %s not found", filepath.Base(refPath))
	}

	manifestPath, err := saveUpload(r, "pdf_file", cfg.Dirs.Uploads, manifestExts, true, nil)
	if err != nil {
		return nil, "", http.StatusBadRequest, err
	}

	report, err := cfg.Processor.Process(manifestPath, refPath, cfg.Dirs.Output)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, reference.ErrNoMatchColumn) {
			status = http.StatusUnprocessableEntity
		}
		return nil, "", status, err
	}

	var runID string
	if cfg.History != nil {
		run := history.FromReport(filepath.Base(manifestPath), filepath.Base(refPath), report)
		if runID, err = cfg.History.RecordRun(cfg.Debug, run); err != nil {
			// the route file exists; a history failure does not fail the request
			log.Printf("record run: %v", err)
		}
	}
	return report, runID, http.StatusOK, nil
}

func parseUpload(cfg *Config, w http.ResponseWriter, r *http.Request) error {
	limit := int64(cfg.MaxUploadMB) << 20
	if limit <= 0 {
		limit = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return fmt.Errorf("failed to parse upload: %w", err)
	}
	return nil
}

func (h *PageHandler) renderIndex(w http.ResponseWriter, status int, data pageData) {
	data.References = listFiles(h.Config.Dirs.References, referenceExts)
	if h.Config.History != nil {
		runs, err := h.Config.History.ListRuns(recentRuns)
		if err != nil {
			log.Printf("list runs: %v", err)
		}
		data.Runs = runs
	}
	render(w, status, "index.html", data)
}

// Help renders the embedded usage notes.
func (h *PageHandler) Help(w http.ResponseWriter, r *http.Request) {
	src, err := assets.ReadFile("help.md")
	if err != nil {
		http.Error(w, "Help not available", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		http.Error(w, "Failed to render help", http.StatusInternalServerError)
		return
	}
	render(w, http.StatusOK, "help.html", pageData{Title: "Help", HelpHTML: template.HTML(buf.String())})
}
