package parse

import (
	"reflect"
	"testing"
)

func TestAddressParserAddresses(t *testing.T) {
	p := NewAddressParser(testRules(t, nil))

	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name:  "russian prefix token with building",
			lines: []string{"Магазин №3, ул. Ленина, д. 5"},
			want:  []string{"ул. Ленина, д. 5"},
		},
		{
			name:  "english suffix token",
			lines: []string{"123 Main St."},
			want:  []string{"123 Main St"},
		},
		{
			name:  "glued finnish suffix",
			lines: []string{"Aurakatu 5"},
			want:  []string{"Aurakatu 5"},
		},
		{
			name:  "duplicates suppressed in first-seen order",
			lines: []string{"45 Oak Avenue", "проспект Мира 10", "45  Oak Avenue,"},
			want:  []string{"45 Oak Avenue", "проспект Мира 10"},
		},
		{
			name:  "suffix inside a word is not a token",
			lines: []string{"Broadway Pharmacy", "Forest Hill"},
			want:  []string{"Broadway Pharmacy", "Forest Hill"},
		},
		{
			name:  "raw fallback keeps lines longer than six runes",
			lines: []string{"Acme", "Globex AB", "Kesko", "Globex AB", "Initech"},
			want:  []string{"Globex AB", "Initech"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Addresses(tt.lines)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Addresses() = %q, want %q", got, tt.want)
			}
		})
	}
}

type fakeRefiner struct{}

func (fakeRefiner) Refine(address string) (string, string) {
	if address == "123 Main St" {
		return "main st 123", "springfield"
	}
	return "", ""
}

func TestAddressParserRefiner(t *testing.T) {
	rules := testRules(t, nil)
	rules.Refiner = fakeRefiner{}
	p := NewAddressParser(rules)

	got := p.Parse([]string{"123 Main St", "45 Oak Avenue"})
	want := []Candidate{
		{Key: "main st 123", Name: "123 Main St", City: "springfield"},
		{Key: "45 Oak Avenue", Name: "45 Oak Avenue"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}
