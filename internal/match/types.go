package match

import (
	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/parse"
	"github.com/route-matcher/internal/reference"
)

// Thresholds are the acceptance limits on the 0-100 similarity scale.
type Thresholds struct {
	Base        float64 // name score needed without city context
	CityContext float64 // name score needed when city narrowing succeeded
	City        float64 // city score a row needs to stay in the narrowed set
}

// DefaultThresholds returns the standard acceptance limits.
func DefaultThresholds() *Thresholds {
	return &Thresholds{
		Base:        80,
		CityContext: 74,
		City:        86,
	}
}

// ThresholdsFromSettings copies the configured limits.
func ThresholdsFromSettings(s config.MatchingSettings) *Thresholds {
	return &Thresholds{
		Base:        s.BaseThreshold,
		CityContext: s.CityContextThreshold,
		City:        s.CityThreshold,
	}
}

// Result is one accepted candidate.
type Result struct {
	Order        int // 1-based, in candidate order
	Candidate    parse.Candidate
	RowIndex     int
	Row          reference.Row
	MatchedValue string
	Score        float64
	Threshold    float64
	CityNarrowed bool
}

// Hint is the best reference value seen for a candidate, accepted or not.
type Hint struct {
	Key          string  `json:"key"`
	MatchedValue string  `json:"matched_value"`
	Score        float64 `json:"score"`
	RowIndex     int     `json:"row_index"`
}

// Outcome is the result of matching a candidate list.
type Outcome struct {
	Results    []Result
	Unresolved []string // candidate keys, in candidate order
	Hints      []Hint   // one per scored candidate, in candidate order
}

// HintFor returns the first hint recorded for key.
func (o Outcome) HintFor(key string) (Hint, bool) {
	for _, h := range o.Hints {
		if h.Key == key {
			return h, true
		}
	}
	return Hint{}, false
}
