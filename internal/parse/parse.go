// Package parse turns manifest lines into stop candidates.
//
// Three strategies share the Parser interface:
//
//	address  street-pattern extraction with a raw-line fallback
//	block    name lines followed by an upper-case city line
//	weight   "<name> <parcel code> <weight> <quantity>" rows
//
// The active strategy is chosen from configuration with New.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/normalize"
)

// Strategy names accepted by New.
const (
	StrategyAddress = "address"
	StrategyBlock   = "block"
	StrategyWeight  = "weight"
)

// Candidate is one stop found in a manifest.
type Candidate struct {
	Key      string  // string compared against the reference table
	Name     string  // display name as found in the document
	City     string  // optional locality
	Quantity int     // parcel count, 0 when the manifest does not carry it
	Weight   float64 // kilograms, 0 when the manifest does not carry it
}

// HasLoad reports whether the candidate carries quantity or weight data.
func (c Candidate) HasLoad() bool {
	return c.Quantity > 0 || c.Weight > 0
}

// Parser converts ordered manifest lines to candidates in document order.
type Parser interface {
	Parse(lines []string) []Candidate
}

// New returns the parser registered under strategy.
func New(strategy string, rules *Rules) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case StrategyAddress, "regex":
		return NewAddressParser(rules), nil
	case StrategyBlock, "name_city":
		return NewBlockParser(rules), nil
	case StrategyWeight:
		return NewWeightParser(rules), nil
	}
	return nil, fmt.Errorf("unknown parser strategy %q (want %s, %s or %s)",
		strategy, StrategyAddress, StrategyBlock, StrategyWeight)
}

// Rules are the line classification predicates shared by the strategies.
type Rules struct {
	KnownCities      map[string]bool
	CityTypoDistance int
	Noise            []*regexp.Regexp
	StreetTokens     []string
	StreetSuffixes   []string
	MinRawLineLength int
	// Refiner, when set, is asked to split raw address strings into a
	// street key and a city.
	Refiner AddressRefiner
	Debug   bool
}

// NewRules compiles parser settings into Rules.
func NewRules(cfg config.ParserSettings) (*Rules, error) {
	r := &Rules{
		KnownCities:      make(map[string]bool, len(cfg.KnownCities)),
		CityTypoDistance: cfg.CityTypoDistance,
		StreetTokens:     cfg.StreetTokens,
		StreetSuffixes:   cfg.StreetSuffixes,
		MinRawLineLength: cfg.MinRawLineLength,
		Refiner:          NewRefiner(),
	}
	for _, city := range cfg.KnownCities {
		if key := normalize.CityKey(city); key != "" {
			r.KnownCities[key] = true
		}
	}
	for _, pattern := range cfg.NoisePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("noise pattern %q: %w", pattern, err)
		}
		r.Noise = append(r.Noise, re)
	}
	return r, nil
}

// DefaultRules returns Rules built from the default parser settings.
func DefaultRules() *Rules {
	r, err := NewRules(config.Default().Parser)
	if err != nil {
		panic(err)
	}
	return r
}

// IsNoise reports whether line is manifest boilerplate or a bare code.
func (r *Rules) IsNoise(line string) bool {
	for _, re := range r.Noise {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsCity reports whether line is a locality token: its letters are all
// upper-case, or it names a known city (within the typo distance).
func (r *Rules) IsCity(line string) bool {
	letters := normalize.LettersOnly(line)
	if letters == "" {
		return false
	}
	if normalize.IsUpper(letters) {
		return true
	}

	key := normalize.CityKey(line)
	if r.KnownCities[key] {
		return true
	}
	if r.CityTypoDistance > 0 {
		for known := range r.KnownCities {
			// short names would match almost anything
			if len([]rune(known)) <= 2*r.CityTypoDistance {
				continue
			}
			if levenshtein.ComputeDistance(key, known) <= r.CityTypoDistance {
				return true
			}
		}
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
