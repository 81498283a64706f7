// Package normalize holds the string clean-up rules shared by the parser,
// the reference loader and the matcher.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var upper = cases.Upper(language.Und)

// Text applies NFKC normalization, drops control characters and trims the result.
// PDF text layers often carry ligatures and non-breaking spaces; NFKC folds them.
func Text(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Squash collapses every run of whitespace into a single space and trims the ends.
func Squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TrimTrailingPunct strips trailing punctuation and spaces.
func TrimTrailingPunct(s string) string {
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// Clean squashes whitespace and strips trailing ",", "." and spaces.
func Clean(s string) string {
	return strings.TrimRight(Squash(s), ",. ")
}

// ColumnName lower-cases a header and keeps only Latin letters, Cyrillic letters and digits.
func ColumnName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.In(r, unicode.Latin, unicode.Cyrillic):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LettersOnly drops every rune that is not a letter.
func LettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}

// IsUpper reports whether s has at least one cased letter and no lower-case letter.
func IsUpper(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

// CityKey is the comparison form of a locality name: letters and single spaces, upper-cased.
func CityKey(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return ' '
	}, s)
	return upper.String(Squash(s))
}

// DedupeDash collapses "X - X" into "X". Comparison ignores case and surrounding spaces.
func DedupeDash(s string) string {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return s
	}
	left := strings.TrimSpace(parts[0])
	right := strings.TrimSpace(parts[1])
	if left != "" && strings.EqualFold(left, right) {
		return left
	}
	return s
}

// FirstAlternate keeps the first segment of a "/"-separated alternate form.
func FirstAlternate(s string) string {
	if i := strings.Index(s, "/"); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// SquashName applies the stop-name clean-up used for match keys.
func SquashName(s string) string {
	s = Squash(s)
	s = DedupeDash(s)
	s = FirstAlternate(s)
	return Squash(s)
}

// LegalForms is a set of lower-case company-form tokens (Oy, AB, Ltd, ООО, ...).
type LegalForms map[string]bool

// NewLegalForms builds the set from a configured list.
func NewLegalForms(forms []string) LegalForms {
	set := make(LegalForms, len(forms))
	for _, f := range forms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			set[f] = true
		}
	}
	return set
}

// Strip removes company-form tokens. If every token is a company form the
// input is returned unchanged so a key never becomes empty.
func (lf LegalForms) Strip(tokens []string) []string {
	if len(lf) == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !lf[strings.ToLower(tok)] {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return tokens
	}
	return out
}
