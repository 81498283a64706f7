package parse

import (
	"strings"

	"github.com/route-matcher/internal/debug"
	"github.com/route-matcher/internal/normalize"
)

// BlockParser groups name lines with the city line that follows them.
type BlockParser struct {
	rules    *Rules
	fallback *AddressParser
}

// NewBlockParser creates a block parser that falls back to address extraction.
func NewBlockParser(rules *Rules) *BlockParser {
	return &BlockParser{rules: rules, fallback: NewAddressParser(rules)}
}

// Parse implements Parser.
func (p *BlockParser) Parse(lines []string) []Candidate {
	var kept []string
	for _, line := range lines {
		line = normalize.Squash(line)
		if line == "" || p.rules.IsNoise(line) {
			continue
		}
		kept = append(kept, line)
	}

	var out []Candidate
	var buf []string
	for i := 0; i < len(kept); {
		line := kept[i]
		if p.rules.IsCity(line) {
			// a city with nothing before it
			i++
			continue
		}
		buf = append(buf, line)

		if i+1 < len(kept) && p.rules.IsCity(kept[i+1]) {
			out = append(out, newBlock(buf, kept[i+1]))
			buf = nil
			i += 2
			continue
		}
		// three-line pattern: the name is this line and the next one only
		if i+2 < len(kept) && !p.rules.IsCity(kept[i+1]) && p.rules.IsCity(kept[i+2]) {
			out = append(out, newBlock([]string{line, kept[i+1]}, kept[i+2]))
			buf = nil
			i += 3
			continue
		}
		i++
	}

	if len(out) == 0 {
		debug.Output(p.rules.Debug, "no name/city blocks found, falling back to address extraction")
		return p.fallback.Parse(lines)
	}
	return out
}

func newBlock(nameLines []string, city string) Candidate {
	name := normalize.Clean(normalize.SquashName(normalize.Clean(strings.Join(nameLines, " "))))
	city = normalize.Clean(city)
	return Candidate{
		Key:  normalize.Clean(name + ", " + city),
		Name: name,
		City: city,
	}
}
