// Package match resolves stop candidates against a reference table.
package match

import (
	"fmt"
	"strings"

	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/debug"
	"github.com/route-matcher/internal/normalize"
	"github.com/route-matcher/internal/parse"
	"github.com/route-matcher/internal/reference"
	"github.com/route-matcher/internal/similarity"
)

// Scorer compares two processed strings on a 0-100 scale.
type Scorer func(a, b string) float64

// Config holds the matcher policy.
type Config struct {
	Tiers *Thresholds
	// AllowReuse lets one reference row be matched by several candidates.
	AllowReuse bool
	// LegalForms are removed from both sides before scoring. Nil disables it.
	LegalForms normalize.LegalForms
	Scorer     Scorer
	Debug      bool
}

// Matcher scores candidates against reference rows. It keeps no state
// between calls to Match.
type Matcher struct {
	tiers      *Thresholds
	allowReuse bool
	legalForms normalize.LegalForms
	score      Scorer
	debug      bool
}

// NewMatcher creates a matcher; zero values fall back to the defaults.
func NewMatcher(cfg Config) *Matcher {
	tiers := cfg.Tiers
	if tiers == nil {
		tiers = DefaultThresholds()
	}
	score := cfg.Scorer
	if score == nil {
		score = similarity.Score
	}
	// forms are compared in the same transliterated form as the keys
	var forms normalize.LegalForms
	if len(cfg.LegalForms) > 0 {
		forms = make(normalize.LegalForms, len(cfg.LegalForms))
		for f := range cfg.LegalForms {
			if p := similarity.Process(f); p != "" {
				forms[p] = true
			}
		}
	}
	return &Matcher{
		tiers:      tiers,
		allowReuse: cfg.AllowReuse,
		legalForms: forms,
		score:      score,
		debug:      cfg.Debug,
	}
}

// FromSettings builds a matcher from the matching section of the configuration.
func FromSettings(s config.MatchingSettings, debugMode bool) *Matcher {
	cfg := Config{
		Tiers:      ThresholdsFromSettings(s),
		AllowReuse: s.AllowReuse,
		Debug:      debugMode,
	}
	if s.StripLegalForms {
		cfg.LegalForms = normalize.NewLegalForms(s.LegalForms)
	}
	return NewMatcher(cfg)
}

// Thresholds returns the active limits.
func (m *Matcher) Thresholds() Thresholds {
	return *m.tiers
}

// Match resolves every candidate in order. cityColumn may be empty.
func (m *Matcher) Match(candidates []parse.Candidate, table *reference.Table, matchColumn, cityColumn string) (Outcome, error) {
	defer debug.Timing(m.debug, "matching")()

	matchIdx := table.Index(matchColumn)
	if matchIdx < 0 {
		return Outcome{}, fmt.Errorf("match column %q not in table (columns: %s)", matchColumn, strings.Join(table.Columns, ", "))
	}
	cityIdx := -1
	if cityColumn != "" {
		if cityIdx = table.Index(cityColumn); cityIdx < 0 {
			return Outcome{}, fmt.Errorf("city column %q not in table (columns: %s)", cityColumn, strings.Join(table.Columns, ", "))
		}
	}

	values := make([]string, len(table.Rows))
	var cities []string
	if cityIdx >= 0 {
		cities = make([]string, len(table.Rows))
	}
	for i, row := range table.Rows {
		values[i] = m.prepare(row[matchIdx])
		if cityIdx >= 0 {
			cities[i] = similarity.Process(row[cityIdx])
		}
	}

	used := make(map[int]bool)
	out := Outcome{Unresolved: []string{}}

	for _, c := range candidates {
		key := m.prepare(c.Key)
		if key == "" {
			debug.Output(m.debug, "empty key %q: unresolved", c.Key)
			out.Unresolved = append(out.Unresolved, c.Key)
			continue
		}

		rows := make([]int, 0, len(values))
		for i := range values {
			if m.allowReuse || !used[i] {
				rows = append(rows, i)
			}
		}

		narrowed := false
		if cityIdx >= 0 && strings.TrimSpace(c.City) != "" {
			if subset := m.narrow(similarity.Process(c.City), rows, cities); len(subset) > 0 {
				rows, narrowed = subset, true
			} else {
				debug.Output(m.debug, "city %q matched no rows, using the full table", c.City)
			}
		}

		best, bestScore := -1, -1.0
		for _, i := range rows {
			if s := m.score(key, values[i]); s > bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 {
			out.Unresolved = append(out.Unresolved, c.Key)
			continue
		}

		matched := table.Rows[best][matchIdx]
		out.Hints = append(out.Hints, Hint{Key: c.Key, MatchedValue: matched, Score: bestScore, RowIndex: best})

		threshold := m.tiers.Base
		if narrowed {
			threshold = m.tiers.CityContext
		}
		debug.Output(m.debug, "%q -> %q score=%.2f threshold=%.2f narrowed=%v", c.Key, matched, bestScore, threshold, narrowed)

		if bestScore >= threshold {
			used[best] = true
			out.Results = append(out.Results, Result{
				Order:        len(out.Results) + 1,
				Candidate:    c,
				RowIndex:     best,
				Row:          table.Rows[best],
				MatchedValue: matched,
				Score:        bestScore,
				Threshold:    threshold,
				CityNarrowed: narrowed,
			})
			continue
		}
		out.Unresolved = append(out.Unresolved, c.Key)
	}

	debug.Output(m.debug, "matched %d of %d candidates", len(out.Results), len(candidates))
	return out, nil
}

// narrow keeps the rows whose city scores at least the city threshold.
func (m *Matcher) narrow(city string, rows []int, cities []string) []int {
	if city == "" {
		return nil
	}
	var subset []int
	for _, i := range rows {
		if m.score(city, cities[i]) >= m.tiers.City {
			subset = append(subset, i)
		}
	}
	return subset
}

// prepare brings a key or reference value into comparison form.
func (m *Matcher) prepare(s string) string {
	p := similarity.Process(s)
	if len(m.legalForms) == 0 || p == "" {
		return p
	}
	return strings.Join(m.legalForms.Strip(strings.Fields(p)), " ")
}
