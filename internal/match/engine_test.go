package match

import (
	"reflect"
	"testing"

	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/normalize"
	"github.com/route-matcher/internal/parse"
	"github.com/route-matcher/internal/reference"
)

func addressTable() *reference.Table {
	return reference.NewTable([]string{"Address", "Note"}, [][]string{
		{"123 Main Street", "back door"},
		{"45 Oak Avenue", ""},
	})
}

func customerTable() *reference.Table {
	return reference.NewTable([]string{"Name", "City"}, [][]string{
		{"Acme Oy", "Turku"},
		{"Acme Oy", "Raisio"},
		{"Globex AB", "Raisio"},
	})
}

func TestMatchAddressScenario(t *testing.T) {
	m := NewMatcher(Config{AllowReuse: true})
	candidates := []parse.Candidate{{Key: "123 Main St"}, {Key: "999 Nowhere Ave"}}

	out, err := m.Match(candidates, addressTable(), "Address", "")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if len(out.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(out.Results))
	}
	r := out.Results[0]
	if r.MatchedValue != "123 Main Street" || r.Order != 1 || r.Score < 80 {
		t.Errorf("result = %+v, want 123 Main Street with score >= 80", r)
	}
	if r.Row[1] != "back door" {
		t.Errorf("row not carried through: %v", r.Row)
	}

	if want := []string{"999 Nowhere Ave"}; !reflect.DeepEqual(out.Unresolved, want) {
		t.Errorf("Unresolved = %v, want %v", out.Unresolved, want)
	}
	hint, ok := out.HintFor("999 Nowhere Ave")
	if !ok {
		t.Fatal("no hint for unresolved candidate")
	}
	if hint.Score >= 80 {
		t.Errorf("hint score = %v, want below 80", hint.Score)
	}
}

func TestMatchCityNarrowing(t *testing.T) {
	m := FromSettings(config.Default().Matching, false)

	tests := []struct {
		name         string
		candidate    parse.Candidate
		wantRow      int
		wantNarrowed bool
		wantLimit    float64
	}{
		{
			name:         "city selects the row",
			candidate:    parse.Candidate{Key: "Acme Oy, RAISIO", Name: "Acme Oy", City: "RAISIO"},
			wantRow:      1,
			wantNarrowed: true,
			wantLimit:    74,
		},
		{
			name:         "other city",
			candidate:    parse.Candidate{Key: "Acme Oy, TURKU", Name: "Acme Oy", City: "TURKU"},
			wantRow:      0,
			wantNarrowed: true,
			wantLimit:    74,
		},
		{
			name:         "unknown city falls back to full table",
			candidate:    parse.Candidate{Key: "Acme Oy, HELSINKI", Name: "Acme Oy", City: "HELSINKI"},
			wantRow:      0,
			wantNarrowed: false,
			wantLimit:    80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.Match([]parse.Candidate{tt.candidate}, customerTable(), "Name", "City")
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			if len(out.Results) != 1 {
				t.Fatalf("got %d results (unresolved %v), want 1", len(out.Results), out.Unresolved)
			}
			r := out.Results[0]
			if r.RowIndex != tt.wantRow {
				t.Errorf("RowIndex = %d, want %d", r.RowIndex, tt.wantRow)
			}
			if r.CityNarrowed != tt.wantNarrowed {
				t.Errorf("CityNarrowed = %v, want %v", r.CityNarrowed, tt.wantNarrowed)
			}
			if r.Threshold != tt.wantLimit {
				t.Errorf("Threshold = %v, want %v", r.Threshold, tt.wantLimit)
			}
		})
	}
}

func TestMatchThresholdBoundary(t *testing.T) {
	scores := map[string]float64{"at": 80, "below": 79, "above": 80.01}
	scorer := func(a, b string) float64 { return scores[a] }
	m := NewMatcher(Config{Scorer: scorer, AllowReuse: true})

	table := reference.NewTable([]string{"name"}, [][]string{{"anything"}})
	candidates := []parse.Candidate{{Key: "at"}, {Key: "below"}, {Key: "above"}}

	out, err := m.Match(candidates, table, "name", "")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	var matched []string
	for _, r := range out.Results {
		matched = append(matched, r.Candidate.Key)
	}
	if want := []string{"at", "above"}; !reflect.DeepEqual(matched, want) {
		t.Errorf("matched = %v, want %v", matched, want)
	}
	if want := []string{"below"}; !reflect.DeepEqual(out.Unresolved, want) {
		t.Errorf("Unresolved = %v, want %v", out.Unresolved, want)
	}
	if len(out.Hints) != 3 {
		t.Errorf("got %d hints, want one per candidate", len(out.Hints))
	}
}

func TestMatchEmptyKeySkipsScoring(t *testing.T) {
	calls := 0
	scorer := func(a, b string) float64 {
		calls++
		return 100
	}
	m := NewMatcher(Config{Scorer: scorer, AllowReuse: true})

	out, err := m.Match([]parse.Candidate{{Key: "   "}, {Key: "--"}}, addressTable(), "Address", "")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("scorer called %d times, want 0", calls)
	}
	if len(out.Results) != 0 || len(out.Unresolved) != 2 || len(out.Hints) != 0 {
		t.Errorf("outcome = %+v, want two unresolved and no hints", out)
	}
}

func TestMatchReusePolicy(t *testing.T) {
	table := reference.NewTable([]string{"Name"}, [][]string{{"Acme"}, {"Acme Oy"}})
	candidates := []parse.Candidate{{Key: "Acme"}, {Key: "Acme"}}

	tests := []struct {
		name     string
		reuse    bool
		wantRows []int
	}{
		{name: "reuse allowed", reuse: true, wantRows: []int{0, 0}},
		{name: "each row once", reuse: false, wantRows: []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(Config{AllowReuse: tt.reuse})
			out, err := m.Match(candidates, table, "Name", "")
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			var rows []int
			for _, r := range out.Results {
				rows = append(rows, r.RowIndex)
			}
			if !reflect.DeepEqual(rows, tt.wantRows) {
				t.Errorf("rows = %v, want %v", rows, tt.wantRows)
			}
		})
	}
}

func TestMatchLegalForms(t *testing.T) {
	table := reference.NewTable([]string{"Name"}, [][]string{{"ООО Ромашка"}, {"Globex"}})
	m := NewMatcher(Config{AllowReuse: true, LegalForms: normalize.NewLegalForms([]string{"ооо", "ab"})})

	out, err := m.Match([]parse.Candidate{{Key: "Ромашка"}, {Key: "Globex AB"}}, table, "Name", "")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("got %d results (unresolved %v), want 2", len(out.Results), out.Unresolved)
	}
	for _, r := range out.Results {
		if r.Score != 100 {
			t.Errorf("%q scored %v, want 100", r.Candidate.Key, r.Score)
		}
	}
}

func TestMatchInvariants(t *testing.T) {
	m := FromSettings(config.Default().Matching, false)
	candidates := []parse.Candidate{
		{Key: "Acme Oy, TURKU", City: "TURKU"},
		{Key: "Initech, ESPOO", City: "ESPOO"},
		{Key: ""},
		{Key: "Globex AB, RAISIO", City: "RAISIO"},
	}

	first, err := m.Match(candidates, customerTable(), "Name", "City")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	second, err := m.Match(candidates, customerTable(), "Name", "City")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if len(first.Results)+len(first.Unresolved) != len(candidates) {
		t.Errorf("found %d + unresolved %d != total %d", len(first.Results), len(first.Unresolved), len(candidates))
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated match differs:\n%+v\n%+v", first, second)
	}
	for i, r := range first.Results {
		if r.Order != i+1 {
			t.Errorf("result %d has order %d", i, r.Order)
		}
	}
}

func TestMatchUnknownColumn(t *testing.T) {
	m := NewMatcher(Config{})
	if _, err := m.Match(nil, addressTable(), "Street", ""); err == nil {
		t.Error("Match() with unknown match column: error = nil")
	}
	if _, err := m.Match(nil, addressTable(), "Address", "Town"); err == nil {
		t.Error("Match() with unknown city column: error = nil")
	}
}
