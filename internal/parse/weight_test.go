package parse

import (
	"reflect"
	"testing"
)

func TestWeightParser(t *testing.T) {
	p := NewWeightParser(testRules(t, nil))

	lines := []string{
		"Name Code Weight Qty",
		"Acme Oy P12345678 12,5 3",
		"Globex AB - Globex AB P123456789 4.25 1",
		"Initech P12345678 0 2",
		"Hooli P12345678 3.5 0",
		"Short code P1234 3.5 1",
		"Umbrella P87654321 7 2 extra",
	}

	got := p.Parse(lines)
	want := []Candidate{
		{Key: "Acme Oy", Name: "Acme Oy", Quantity: 3, Weight: 12.5},
		{Key: "Globex AB", Name: "Globex AB", Quantity: 1, Weight: 4.25},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
	for _, c := range got {
		if !c.HasLoad() {
			t.Errorf("HasLoad() = false for %+v", c)
		}
	}
}
