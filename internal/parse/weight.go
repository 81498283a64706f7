package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/route-matcher/internal/normalize"
)

var weightLine = regexp.MustCompile(`^(.+?)\s+(P\d{8,})\s+(\d+(?:[.,]\d+)?)\s+(\d+)\s*$`)

// WeightParser reads rows of the form "<name> <parcel code> <weight> <quantity>".
// Rows that do not fit, or carry a non-positive weight or quantity, are skipped.
type WeightParser struct {
	rules *Rules
}

// NewWeightParser creates a weight/quantity row parser.
func NewWeightParser(rules *Rules) *WeightParser {
	return &WeightParser{rules: rules}
}

// Parse implements Parser.
func (p *WeightParser) Parse(lines []string) []Candidate {
	var out []Candidate
	for _, line := range lines {
		m := weightLine.FindStringSubmatch(normalize.Squash(line))
		if m == nil {
			continue
		}
		weight, err := strconv.ParseFloat(strings.Replace(m[3], ",", ".", 1), 64)
		if err != nil || weight <= 0 {
			continue
		}
		qty, err := strconv.Atoi(m[4])
		if err != nil || qty <= 0 {
			continue
		}
		name := normalize.Clean(normalize.SquashName(normalize.Clean(m[1])))
		if name == "" {
			continue
		}
		out = append(out, Candidate{Key: name, Name: name, Quantity: qty, Weight: weight})
	}
	return out
}
