// Package similarity implements the fuzzy string scores used by the matcher.
//
// All scorers return a value on a 0-100 scale and expect inputs that went
// through Process: ASCII, lower-case, alphanumeric tokens separated by single
// spaces. Scores are rounded to two decimals so that threshold comparisons are
// stable across runs.
package similarity

import (
	"math"
	"sort"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"github.com/xrash/smetrics"

	"github.com/route-matcher/internal/normalize"
)

const (
	unbaseScale = 0.95
	// length ratio at which WRatio starts comparing substrings
	partialLenRatio = 1.5
	// length ratio at which partial scores are scaled down further
	longLenRatio = 8.0
)

// Process folds s into the comparison form: NFKC, transliterated to ASCII,
// lower-cased, non-alphanumerics replaced by spaces, whitespace squashed.
func Process(s string) string {
	s = unidecode.Unidecode(normalize.Text(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return ' '
	}, s)
	return normalize.Squash(s)
}

// Score is the matcher's metric: the maximum of WRatio and TokenSetRatio.
func Score(a, b string) float64 {
	return math.Max(WRatio(a, b), TokenSetRatio(a, b))
}

// Ratio is the normalized indel similarity: 100 * (1 - indel / (len(a)+len(b))).
// It is order-sensitive and penalizes length differences.
func Ratio(a, b string) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	if a == b {
		return 100
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	return round(100 * (1 - float64(dist)/float64(total)))
}

// PartialRatio scores the shorter string against the best aligned window of
// the longer one.
func PartialRatio(a, b string) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}
	if len(short) == len(long) {
		return Ratio(short, long)
	}

	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		if r := Ratio(short, long[i:i+len(short)]); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedJoin(strings.Fields(a)), sortedJoin(strings.Fields(b)))
}

// TokenSetRatio treats both strings as token sets. When one set contains the
// other the score is 100; otherwise the common part is compared with each
// side's remainder.
func TokenSetRatio(a, b string) float64 {
	sect, diffAB, diffBA := tokenSets(a, b)
	if sect == "" && diffAB == "" && diffBA == "" {
		return 0
	}
	if sect != "" && (diffAB == "" || diffBA == "") {
		return 100
	}

	combinedAB := joinNonEmpty(sect, diffAB)
	combinedBA := joinNonEmpty(sect, diffBA)

	best := Ratio(combinedAB, combinedBA)
	if sect != "" {
		best = math.Max(best, Ratio(sect, combinedAB))
		best = math.Max(best, Ratio(sect, combinedBA))
	}
	return best
}

// WRatio is the holistic weighted ratio. Strings of similar length are compared
// whole and by token order/set; strongly differing lengths switch to partial
// (substring) comparison with a scale-down.
func WRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	la, lb := float64(len(a)), float64(len(b))
	lenRatio := math.Max(la, lb) / math.Min(la, lb)

	best := Ratio(a, b)
	if lenRatio < partialLenRatio {
		tokens := math.Max(TokenSortRatio(a, b), TokenSetRatio(a, b))
		return round(math.Max(best, tokens*unbaseScale))
	}

	partialScale := 0.9
	if lenRatio >= longLenRatio {
		partialScale = 0.6
	}

	best = math.Max(best, PartialRatio(a, b)*partialScale)
	best = math.Max(best, partialTokenRatio(a, b)*unbaseScale*partialScale)
	return round(best)
}

func partialTokenRatio(a, b string) float64 {
	sorted := PartialRatio(sortedJoin(strings.Fields(a)), sortedJoin(strings.Fields(b)))

	sect, diffAB, diffBA := tokenSets(a, b)
	if sect != "" && (diffAB == "" || diffBA == "") {
		return 100
	}
	if diffAB == "" || diffBA == "" {
		return sorted
	}
	return math.Max(sorted, PartialRatio(diffAB, diffBA))
}

// tokenSets returns the sorted intersection and both sorted differences, each
// joined with single spaces.
func tokenSets(a, b string) (sect, diffAB, diffBA string) {
	setA := toSet(strings.Fields(a))
	setB := toSet(strings.Fields(b))

	var inter, onlyA, onlyB []string
	for tok := range setA {
		if setB[tok] {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if !setA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	return sortedJoin(inter), sortedJoin(onlyA), sortedJoin(onlyB)
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

func sortedJoin(tokens []string) string {
	out := append([]string(nil), tokens...)
	sort.Strings(out)
	return strings.Join(out, " ")
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
