package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/route-matcher/internal/history"
	"github.com/route-matcher/internal/route"
)

// Processor runs the manifest-to-route pipeline.
type Processor interface {
	Process(manifestPath, referencePath, outputDir string) (*route.Report, error)
}

// RunStore is the part of the history store the handlers use.
type RunStore interface {
	RecordRun(localDebug bool, run history.Run) (string, error)
	ListRuns(limit int) ([]history.Run, error)
	GetRun(id string) (history.Run, error)
}

// Dirs are the working directories of the web front end.
type Dirs struct {
	Uploads    string
	Output     string
	References string
}

// Config holds what every handler needs.
type Config struct {
	Dirs        Dirs
	Processor   Processor
	History     RunStore // nil when history is disabled
	MaxUploadMB int
	Debug       bool
}

var (
	errBadName = errors.New("invalid file name")

	referenceExts = map[string]bool{".csv": true, ".txt": true, ".tsv": true, ".xlsx": true, ".xlsm": true}
	manifestExts  = map[string]bool{".pdf": true, ".txt": true}
)

// safeName returns name if it is a plain file name inside its directory.
func safeName(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if name == "" || base != name || base == "/" || strings.HasPrefix(base, ".") {
		return "", errBadName
	}
	return base, nil
}

// resolve joins dir with a confined file name.
func resolve(dir, name string) (string, error) {
	base, err := safeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, base), nil
}

// listFiles returns the visible regular files in dir with one of exts, sorted.
func listFiles(dir string, exts map[string]bool) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if exts[strings.ToLower(filepath.Ext(name))] {
			names = append(names, name)
		}
	}
	return names
}

// saveUpload stores the multipart file field under dir. With prefix set the
// stored name is "<id>_<original>" so concurrent uploads never collide.
// The upload is written to a hidden temp file first; when validate is set it
// must accept that file before it replaces anything at the final path.
func saveUpload(r *http.Request, field, dir string, exts map[string]bool, prefix bool, validate func(path string) error) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing upload %q: %w", field, err)
	}
	defer file.Close()

	name, err := safeName(filepath.Base(header.Filename))
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !exts[ext] {
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(name))
	}
	if prefix {
		name = uuid.NewString()[:8] + "_" + name
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if validate != nil {
		if err := validate(tmp.Name()); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
