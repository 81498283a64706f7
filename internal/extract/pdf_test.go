package extract

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ledongthuc/pdf"
)

func TestLinesUnreadableDocument(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pdf")
	if err := os.WriteFile(garbage, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.pdf")},
		{name: "not a pdf", path: garbage},
		{name: "empty file", path: empty},
	}

	e := NewPDFExtractor(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Lines(tt.path)
			if got == nil {
				t.Fatal("Lines() returned nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("Lines() = %v, want empty", got)
			}
		})
	}
}

func TestJoinRow(t *testing.T) {
	e := NewPDFExtractor(false)

	tests := []struct {
		name  string
		texts []pdf.Text
		want  string
	}{
		{
			name: "adjacent glyphs joined",
			texts: []pdf.Text{
				{S: "A", X: 10, W: 5, FontSize: 10},
				{S: "c", X: 15, W: 5, FontSize: 10},
			},
			want: "Ac",
		},
		{
			name: "wide gap becomes space",
			texts: []pdf.Text{
				{S: "Acme", X: 10, W: 20, FontSize: 10},
				{S: "Oy", X: 35, W: 10, FontSize: 10},
			},
			want: "Acme Oy",
		},
		{
			name: "unknown width keeps glyphs as is",
			texts: []pdf.Text{
				{S: "T", X: 10},
				{S: "U", X: 40},
			},
			want: "TU",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.joinRow(tt.texts); got != tt.want {
				t.Errorf("joinRow() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitText(t *testing.T) {
	got := SplitText("Acme  Oy\n\n   \nTURKU\r\n\tGlobex AB ")
	want := []string{"Acme Oy", "TURKU", "Globex AB"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitText() = %q, want %q", got, want)
	}
}

func TestFileExtractorText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.TXT")
	if err := os.WriteFile(path, []byte("Acme Oy\nTURKU\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := NewFileExtractor(false).Lines(path)
	if want := []string{"Acme Oy", "TURKU"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}

	if got := NewFileExtractor(false).Lines(filepath.Join(t.TempDir(), "missing.txt")); got == nil || len(got) != 0 {
		t.Errorf("Lines() for missing file = %v, want empty slice", got)
	}
}
