package reference

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseDelimited(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		delimiter rune
		columns   []string
		rows      []Row
	}{
		{
			name:      "comma",
			input:     "Name,Address\nAcme Oy,123 Main Street\n",
			delimiter: ',',
			columns:   []string{"Name", "Address"},
			rows:      []Row{{"Acme Oy", "123 Main Street"}},
		},
		{
			name:      "semicolon with comma decimals",
			input:     "Клиент;Город;Вес\nАкме;Москва;1,5\nГлобекс;Казань;2,25\n",
			delimiter: ';',
			columns:   []string{"Клиент", "Город", "Вес"},
			rows:      []Row{{"Акме", "Москва", "1,5"}, {"Глобекс", "Казань", "2,25"}},
		},
		{
			name:      "tab",
			input:     "name\tcity\nAcme\tTurku\n",
			delimiter: '\t',
			columns:   []string{"name", "city"},
			rows:      []Row{{"Acme", "Turku"}},
		},
		{
			name:      "bom, quotes and blank rows",
			input:     "\xEF\xBB\xBFname,address\n\"Globex, AB\",\"Raisiontie 1\"\n,\n\nAcme,Main St 2\n",
			delimiter: ',',
			columns:   []string{"name", "address"},
			rows:      []Row{{"Globex, AB", "Raisiontie 1"}, {"Acme", "Main St 2"}},
		},
		{
			name:      "duplicate and empty headers",
			input:     "name;name;;name\na;b;c;d\n",
			delimiter: ';',
			columns:   []string{"name", "name.1", "column_3", "name.2"},
			rows:      []Row{{"a", "b", "c", "d"}},
		},
		{
			name:      "single column",
			input:     "address\nMain St 2\nOak Ave 5\n",
			delimiter: ';',
			columns:   []string{"address"},
			rows:      []Row{{"Main St 2"}, {"Oak Ave 5"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDelimited([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParseDelimited() error = %v", err)
			}
			if got.Delimiter != tt.delimiter {
				t.Errorf("Delimiter = %q, want %q", got.Delimiter, tt.delimiter)
			}
			if !reflect.DeepEqual(got.Columns, tt.columns) {
				t.Errorf("Columns = %q, want %q", got.Columns, tt.columns)
			}
			if !reflect.DeepEqual(got.Rows, tt.rows) {
				t.Errorf("Rows = %q, want %q", got.Rows, tt.rows)
			}
		})
	}
}

func TestParseDelimitedWindows1251(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String("Адрес;Город\nул. Ленина, 5;Москва\n")
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseDelimited([]byte(encoded))
	if err != nil {
		t.Fatalf("ParseDelimited() error = %v", err)
	}
	if want := []string{"Адрес", "Город"}; !reflect.DeepEqual(got.Columns, want) {
		t.Errorf("Columns = %q, want %q", got.Columns, want)
	}
	if len(got.Rows) != 1 || got.Rows[0][0] != "ул. Ленина, 5" {
		t.Errorf("Rows = %q", got.Rows)
	}
}

func TestParseDelimitedErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "ragged rows under every delimiter", input: "a,b;c\n1,2\n1;2;3;4\tx\n\"unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDelimited([]byte(tt.input)); err == nil {
				t.Error("ParseDelimited() error = nil, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("Load() error = nil, want error")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := writeFile(t, "ref.csv", "name;city\nAcme;Turku\n")
	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	table.Rows = append(table.Rows, Row{"Globex; AB", "Raisio"})
	if err := table.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "name;city\nAcme;Turku\n\"Globex; AB\";Raisio\n"; string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.xlsx")
	table := NewTable([]string{"Customer", "Address", "City"}, [][]string{
		{"Acme Oy", "123 Main Street", "Turku"},
		{"Globex AB", "Raisiontie 1"},
	})
	if err := table.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got.Columns, table.Columns) {
		t.Errorf("Columns = %q, want %q", got.Columns, table.Columns)
	}
	want := []Row{{"Acme Oy", "123 Main Street", "Turku"}, {"Globex AB", "Raisiontie 1", ""}}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Errorf("Rows = %q, want %q", got.Rows, want)
	}
}
