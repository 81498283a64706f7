package reference

import (
	"errors"
	"strings"
	"testing"

	"github.com/route-matcher/internal/config"
)

func TestDetectColumn(t *testing.T) {
	tests := []struct {
		name       string
		columns    []string
		rows       [][]string
		candidates []string
		want       string
	}{
		{
			name:       "exact beats substring",
			columns:    []string{"Delivery address", "ADDRESS"},
			rows:       [][]string{{"Main St 1", "Oak Ave 2"}},
			candidates: []string{"address"},
			want:       "ADDRESS",
		},
		{
			name:       "exact ignores punctuation and case",
			columns:    []string{"id", "Адрес доставки"},
			rows:       [][]string{{"1", "ул. Ленина, 5"}},
			candidates: []string{"address", "адрес_доставки"},
			want:       "Адрес доставки",
		},
		{
			name:       "substring",
			columns:    []string{"id", "Customer address (street)"},
			rows:       [][]string{{"1", "Main St 1"}},
			candidates: []string{"address"},
			want:       "Customer address (street)",
		},
		{
			name:       "long text heuristic skips codes and numbers",
			columns:    []string{"code", "amount", "comment"},
			rows:       [][]string{{"A1", "123456789012", "Kauppakeskus Mylly"}, {"B2", "2,5", "Raisiontie 1 B"}},
			candidates: []string{"address"},
			want:       "comment",
		},
		{
			name:       "nothing qualifies",
			columns:    []string{"id", "qty"},
			rows:       [][]string{{"A1", "3"}},
			candidates: []string{"address"},
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable(tt.columns, tt.rows)
			if got := DetectColumn(table, tt.candidates); got != tt.want {
				t.Errorf("DetectColumn() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectRoles(t *testing.T) {
	cols := config.Default().Columns

	tests := []struct {
		name    string
		columns []string
		rows    [][]string
		want    Roles
	}{
		{
			name:    "address preferred over name",
			columns: []string{"Name", "Address", "City"},
			rows:    [][]string{{"Acme Oy", "123 Main Street", "Turku"}},
			want:    Roles{Address: "Address", Name: "Name", City: "City", Match: "Address", Rule: "address"},
		},
		{
			name:    "name when no address",
			columns: []string{"Клиент", "Город"},
			rows:    [][]string{{"Акме", "Москва"}},
			want:    Roles{Name: "Клиент", City: "Город", Match: "Клиент", Rule: "name"},
		},
		{
			name:    "long text fallback",
			columns: []string{"id", "Kuvaus"},
			rows:    [][]string{{"1", "Kauppakeskus Mylly, Raisio"}},
			want:    Roles{Match: "Kuvaus", Rule: "long-text"},
		},
		{
			name:    "long text search continues past the city column",
			columns: []string{"City", "Notes"},
			rows: [][]string{
				{"Helsinki Metropolitan", "Kauppakeskus Mylly, Raisio"},
				{"Turku Archipelago", "Hansakortteli, Turku"},
			},
			want: Roles{City: "City", Match: "Notes", Rule: "long-text"},
		},
		{
			name:    "city never used as match column",
			columns: []string{"City"},
			rows:    [][]string{{"Kaarina-Littoinen area"}},
			want:    Roles{City: "City"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectRoles(NewTable(tt.columns, tt.rows), cols)
			if tt.want.Match == "" {
				if err == nil {
					t.Fatalf("DetectRoles() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectRoles() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectRoles() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDetectRolesMissingColumn(t *testing.T) {
	table := NewTable([]string{"id", "qty", "kg"}, [][]string{{"A1", "3", "1,5"}})

	_, err := DetectRoles(table, config.Default().Columns)
	if !errors.Is(err, ErrNoMatchColumn) {
		t.Fatalf("DetectRoles() error = %v, want ErrNoMatchColumn", err)
	}

	var colErr *ColumnError
	if !errors.As(err, &colErr) {
		t.Fatalf("error %T is not a *ColumnError", err)
	}
	colErr.Path = "ref.csv"
	for _, col := range []string{"id", "qty", "kg", "ref.csv"} {
		if !strings.Contains(colErr.Error(), col) {
			t.Errorf("error %q does not mention %q", colErr.Error(), col)
		}
	}
}
