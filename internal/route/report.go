package route

import (
	"fmt"
	"strconv"

	"github.com/route-matcher/internal/match"
)

// Report summarises one route run.
type Report struct {
	FoundCount int
	TotalCount int // number of candidates, not reference rows
	NotFound   []string
	// NearMisses holds the best reference value seen for each unresolved key
	// that had at least one row to compare against.
	NearMisses    []match.Hint
	OutputPath    string
	XLSXPath      string
	TotalQuantity int
	TotalWeight   float64
	Strategy      string
	MatchColumn   string
	CityColumn    string
}

// Annotated returns NotFound with near-miss hints appended as
// "key ≈ value (score)".
func (r *Report) Annotated() []string {
	hints := make(map[string]match.Hint, len(r.NearMisses))
	for _, h := range r.NearMisses {
		if _, ok := hints[h.Key]; !ok {
			hints[h.Key] = h
		}
	}

	out := make([]string, len(r.NotFound))
	for i, key := range r.NotFound {
		if h, ok := hints[key]; ok && h.MatchedValue != "" {
			out[i] = fmt.Sprintf("%s ≈ %s (%s)", key, h.MatchedValue, FormatScore(h.Score))
			continue
		}
		out[i] = key
	}
	return out
}

// FormatScore prints a score with at most two decimals.
func FormatScore(score float64) string {
	return strconv.FormatFloat(round2(score), 'f', -1, 64)
}
