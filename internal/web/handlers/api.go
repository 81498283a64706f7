package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/route-matcher/internal/history"
	"github.com/route-matcher/internal/match"
	"github.com/route-matcher/internal/reference"
)

// APIHandler serves the JSON API.
type APIHandler struct {
	Config  *Config
	Columns ColumnDetector
}

// ColumnDetector picks the reference column roles for a table.
type ColumnDetector func(t *reference.Table) (reference.Roles, error)

// ProcessResponse is the JSON form of a route report.
type ProcessResponse struct {
	RunID         string       `json:"run_id,omitempty"`
	FoundCount    int          `json:"found_count"`
	TotalCount    int          `json:"total_count"`
	NotFound      []string     `json:"not_found"`
	NearMisses    []match.Hint `json:"near_misses"`
	RouteFile     string       `json:"route_file"`
	XLSXFile      string       `json:"xlsx_file,omitempty"`
	TotalQuantity int          `json:"total_quantity"`
	TotalWeight   float64      `json:"total_weight"`
	Strategy      string       `json:"strategy"`
	MatchColumn   string       `json:"match_column"`
	CityColumn    string       `json:"city_column,omitempty"`
}

// ColumnsResponse describes a reference table's header and detected roles.
type ColumnsResponse struct {
	File    string          `json:"file"`
	Columns []string        `json:"columns"`
	Rows    int             `json:"rows"`
	Roles   reference.Roles `json:"roles"`
	Error   string          `json:"error,omitempty"`
}

// Process is the JSON counterpart of the upload form.
func (h *APIHandler) Process(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(h.Config, w, r); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, runID, status, err := processUpload(h.Config, r)
	if err != nil {
		writeJSONError(w, status, err.Error())
		return
	}

	resp := ProcessResponse{
		RunID:         runID,
		FoundCount:    report.FoundCount,
		TotalCount:    report.TotalCount,
		NotFound:      report.NotFound,
		NearMisses:    report.NearMisses,
		RouteFile:     filepath.Base(report.OutputPath),
		TotalQuantity: report.TotalQuantity,
		TotalWeight:   report.TotalWeight,
		Strategy:      report.Strategy,
		MatchColumn:   report.MatchColumn,
		CityColumn:    report.CityColumn,
	}
	if resp.NotFound == nil {
		resp.NotFound = []string{}
	}
	if resp.NearMisses == nil {
		resp.NearMisses = []match.Hint{}
	}
	if report.XLSXPath != "" {
		resp.XLSXFile = filepath.Base(report.XLSXPath)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns recent runs, newest first.
func (h *APIHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.Config.History == nil {
		writeJSONError(w, http.StatusNotFound, "Run history is disabled")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.Config.History.ListRuns(limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "count": len(runs)})
}

// GetRun returns one run with its unresolved keys.
func (h *APIHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.Config.History == nil {
		writeJSONError(w, http.StatusNotFound, "Run history is disabled")
		return
	}

	run, err := h.Config.History.GetRun(mux.Vars(r)["id"])
	if errors.Is(err, history.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ReferenceColumns reports the header of a stored reference table and the
// columns the matcher would use. A table without a usable column is reported
// with an error field rather than a failed request.
func (h *APIHandler) ReferenceColumns(w http.ResponseWriter, r *http.Request) {
	path, err := resolve(h.Config.Dirs.References, mux.Vars(r)["filename"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, err := reference.Load(path)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := ColumnsResponse{File: filepath.Base(path), Columns: table.Columns, Rows: len(table.Rows)}
	if h.Columns != nil {
		roles, err := h.Columns(table)
		if err != nil {
			resp.Error = err.Error()
		}
		resp.Roles = roles
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health reports liveness.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"history": h.Config.History != nil,
	})
}
