package parse

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/route-matcher/internal/debug"
	"github.com/route-matcher/internal/normalize"
)

// AddressParser collects street-address fragments from each line. When no
// line contains a street token, every line longer than MinRawLineLength is
// used as a raw address.
type AddressParser struct {
	rules   *Rules
	pattern *regexp.Regexp
}

// NewAddressParser compiles the street patterns from rules.
func NewAddressParser(rules *Rules) *AddressParser {
	return &AddressParser{rules: rules, pattern: streetPattern(rules.StreetTokens, rules.StreetSuffixes)}
}

// streetPattern builds one expression with two alternatives:
// a prefix token followed by the street name ("ул. Ленина, д. 5") and a
// street name ending in a suffix token ("123 Main St", "Aurakatu 5").
// Suffixes of four letters or more may be glued to the name.
func streetPattern(prefixes, suffixes []string) *regexp.Regexp {
	const (
		boundary = `(?:^|[\s,;(])`
		word     = `[\p{L}\p{N}'.\-]+`
		building = `(?:,?\s*(?:д\.|дом|№)?\s*\d+[\p{L}]?(?:[/\-]\d+[\p{L}]?)?)?`
	)

	var alts []string
	if p := alternation(prefixes); p != "" {
		alts = append(alts, p+`\s*[^,\n]+`+building)
	}

	var glued, whole []string
	for _, s := range suffixes {
		if utf8.RuneCountInString(strings.TrimSuffix(s, ".")) >= 4 {
			glued = append(glued, s)
		} else {
			whole = append(whole, s)
		}
	}
	if g := alternation(glued); g != "" {
		alts = append(alts, `(?:`+word+`\s+){0,4}\p{L}*`+g+building)
	}
	if w := alternation(whole); w != "" {
		alts = append(alts, `(?:`+word+`\s+){1,4}`+w+building)
	}
	if len(alts) == 0 {
		return nil
	}

	expr := `(?i)` + boundary + `((?:` + strings.Join(alts, `)|(?:`) + `))(?:$|[^\p{L}])`
	return regexp.MustCompile(expr)
}

// alternation quotes tokens into a group, longest first so that "st." wins over "st".
func alternation(tokens []string) string {
	var quoted []string
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			quoted = append(quoted, t)
		}
	}
	if len(quoted) == 0 {
		return ""
	}
	sort.SliceStable(quoted, func(i, j int) bool {
		return utf8.RuneCountInString(quoted[i]) > utf8.RuneCountInString(quoted[j])
	})
	for i, t := range quoted {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return `(?:` + strings.Join(quoted, "|") + `)`
}

// Parse implements Parser.
func (p *AddressParser) Parse(lines []string) []Candidate {
	addresses := p.Addresses(lines)
	out := make([]Candidate, 0, len(addresses))
	for _, addr := range addresses {
		c := Candidate{Key: addr, Name: addr}
		if p.rules.Refiner != nil {
			if key, city := p.rules.Refiner.Refine(addr); key != "" {
				c.Key, c.City = key, city
			}
		}
		out = append(out, c)
	}
	return out
}

// Addresses returns the distinct address strings of lines in first-seen order.
func (p *AddressParser) Addresses(lines []string) []string {
	var found []string
	if p.pattern != nil {
		for _, line := range lines {
			for _, m := range p.pattern.FindAllStringSubmatch(line, -1) {
				if addr := cleanAddress(m[1]); addr != "" {
					found = append(found, addr)
				}
			}
		}
	}
	if len(found) > 0 {
		return dedupe(found)
	}

	debug.Output(p.rules.Debug, "no street tokens found, using raw lines")
	for _, line := range lines {
		line = normalize.Squash(line)
		if utf8.RuneCountInString(line) > p.rules.MinRawLineLength {
			found = append(found, line)
		}
	}
	return dedupe(found)
}

func cleanAddress(s string) string {
	return normalize.TrimTrailingPunct(normalize.Squash(s))
}
