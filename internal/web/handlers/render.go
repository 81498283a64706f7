package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"

	"github.com/route-matcher/internal/history"
	"github.com/route-matcher/internal/route"
)

//go:embed templates/*.html help.md
var assets embed.FS

var pages = parsePages("index.html", "table.html", "help.html")

// pageData is the view model shared by all pages.
type pageData struct {
	Title      string
	Message    string
	Error      string
	References []string
	Report     *route.Report
	Unresolved []string
	RunID      string
	Runs       []history.Run

	// table editor
	Columns []string
	Rows    [][]string
	SaveURL string
	BackURL string

	HelpHTML template.HTML
}

var funcs = template.FuncMap{
	"base":  filepath.Base,
	"score": route.FormatScore,
	"date": func(r history.Run) string {
		return r.CreatedAt.Local().Format("2006-01-02 15:04")
	},
}

func parsePages(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(assets, "templates/layout.html", "templates/"+name))
	}
	return out
}

// render executes a page into a buffer first so that template errors become
// a clean 500 instead of a half-written page.
func render(w http.ResponseWriter, status int, name string, data pageData) {
	tmpl, ok := pages[name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown page %q", name), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Printf("render %s: %v", name, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
