package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/route-matcher/internal/reference"
)

const maxTableBody = 16 << 20

// FileHandler serves the reference and route table editors and downloads.
type FileHandler struct {
	Config *Config
}

// tablePayload is the body the table editor posts.
type tablePayload struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ViewReference renders a reference table in the editor.
func (h *FileHandler) ViewReference(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	h.renderTable(w, h.Config.Dirs.References, name, "Reference "+name, "/save_reference/"+name)
}

// SaveReference replaces a reference table with the posted rows.
func (h *FileHandler) SaveReference(w http.ResponseWriter, r *http.Request) {
	h.saveTable(w, r, h.Config.Dirs.References, mux.Vars(r)["filename"])
}

// EditRoute renders a generated route file in the editor.
func (h *FileHandler) EditRoute(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	h.renderTable(w, h.Config.Dirs.Output, name, "Route "+name, "/save_route/"+name)
}

// SaveRoute replaces a route file with the posted rows.
func (h *FileHandler) SaveRoute(w http.ResponseWriter, r *http.Request) {
	h.saveTable(w, r, h.Config.Dirs.Output, mux.Vars(r)["filename"])
}

// Download sends a generated route file as an attachment.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	path, err := resolve(h.Config.Dirs.Output, mux.Vars(r)["filename"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if filepath.Ext(path) == ".xlsx" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Name()))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *FileHandler) renderTable(w http.ResponseWriter, dir, name, title, saveURL string) {
	path, err := resolve(dir, name)
	if err != nil {
		render(w, http.StatusBadRequest, "table.html", pageData{Title: title, Error: err.Error(), BackURL: "/"})
		return
	}

	table, err := reference.Load(path)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
			err = fmt.Errorf("%s not found", name)
		}
		render(w, status, "table.html", pageData{Title: title, Error: err.Error(), BackURL: "/"})
		return
	}

	rows := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = row
	}
	render(w, http.StatusOK, "table.html", pageData{
		Title:   title,
		Columns: table.Columns,
		Rows:    rows,
		SaveURL: saveURL,
		BackURL: "/",
	})
}

// saveTable accepts either the editor's JSON payload or a raw delimited file.
// The file keeps the delimiter it was stored with.
func (h *FileHandler) saveTable(w http.ResponseWriter, r *http.Request, dir, name string) {
	path, err := resolve(dir, name)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := reference.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("%s not found", name))
			return
		}
		existing = &reference.Table{}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTableBody))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	table, err := decodeTable(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if existing.Delimiter != 0 {
		table.Delimiter = existing.Delimiter
	}

	if err := table.WriteFile(path); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "rows": len(table.Rows)})
}

func decodeTable(contentType string, body []byte) (*reference.Table, error) {
	if isJSON(contentType) {
		var payload tablePayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("invalid table payload: %w", err)
		}
		if len(payload.Columns) == 0 {
			return nil, errors.New("table has no columns")
		}
		return reference.NewTable(payload.Columns, payload.Rows), nil
	}
	return reference.ParseDelimited(body)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
