package reference

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/route-matcher/internal/config"
	"github.com/route-matcher/internal/normalize"
)

// ErrNoMatchColumn is wrapped by ColumnError.
var ErrNoMatchColumn = errors.New("no usable match column")

// ColumnError reports a table without any column to match on.
type ColumnError struct {
	Path    string
	Columns []string
}

func (e *ColumnError) Error() string {
	where := ""
	if e.Path != "" {
		where = " in " + e.Path
	}
	return fmt.Sprintf("%v%s; available columns: %s", ErrNoMatchColumn, where, strings.Join(e.Columns, ", "))
}

func (e *ColumnError) Unwrap() error { return ErrNoMatchColumn }

// Rule is one step of column detection. It returns the chosen column or "".
type Rule struct {
	Name string
	Find func(t *Table, candidates []string) string
}

// ExactRule matches a column whose normalized name equals a normalized candidate.
// Candidates are tried in list order.
func ExactRule() Rule {
	return Rule{Name: "exact", Find: func(t *Table, candidates []string) string {
		for _, cand := range normalizedCandidates(candidates) {
			for _, col := range t.Columns {
				if normalize.ColumnName(col) == cand {
					return col
				}
			}
		}
		return ""
	}}
}

// SubstringRule matches a column whose normalized name contains a normalized candidate.
func SubstringRule() Rule {
	return Rule{Name: "substring", Find: func(t *Table, candidates []string) string {
		for _, cand := range normalizedCandidates(candidates) {
			for _, col := range t.Columns {
				if strings.Contains(normalize.ColumnName(col), cand) {
					return col
				}
			}
		}
		return ""
	}}
}

// LongTextRule picks the first text column whose average value length exceeds
// minAverage. Columns named in skip are never picked.
func LongTextRule(minAverage float64, skip ...string) Rule {
	return Rule{Name: "long-text", Find: func(t *Table, _ []string) string {
		for _, col := range t.Columns {
			if contains(skip, col) {
				continue
			}
			values := t.ColumnValues(col)
			if isText(values) && averageLength(values) > minAverage {
				return col
			}
		}
		return ""
	}}
}

// DefaultChain is exact, then substring, then the long-text heuristic.
func DefaultChain(minAverage float64) []Rule {
	return []Rule{ExactRule(), SubstringRule(), LongTextRule(minAverage)}
}

// DetectColumn runs rules in order and returns the first column found, or "".
func DetectColumn(t *Table, candidates []string, rules ...Rule) string {
	if len(rules) == 0 {
		rules = DefaultChain(config.Default().Columns.MinAverageLength)
	}
	for _, rule := range rules {
		if col := rule.Find(t, candidates); col != "" {
			return col
		}
	}
	return ""
}

// Roles are the detected column roles of a table.
type Roles struct {
	Address string `json:"address,omitempty"`
	Name    string `json:"name,omitempty"`
	City    string `json:"city,omitempty"`
	// Match is the column compared with candidate keys: Address, else Name,
	// else a long-text column.
	Match string `json:"match"`
	// Rule names the detection step that produced Match.
	Rule string `json:"rule"`
}

// DetectRoles finds the address, name and city columns. Name-based rules are
// applied to all roles before the long-text heuristic is considered, so a
// named column always wins over a guessed one. City never uses the heuristic.
func DetectRoles(t *Table, cols config.ColumnSettings) (Roles, error) {
	named := []Rule{ExactRule(), SubstringRule()}

	var roles Roles
	roles.Address = DetectColumn(t, cols.Address, named...)
	roles.Name = DetectColumn(t, cols.Name, named...)
	roles.City = DetectColumn(t, cols.City, named...)

	switch {
	case roles.Address != "":
		roles.Match, roles.Rule = roles.Address, "address"
	case roles.Name != "":
		roles.Match, roles.Rule = roles.Name, "name"
	default:
		all := append(append([]string{}, cols.Address...), cols.Name...)
		if col := DetectColumn(t, all, LongTextRule(cols.MinAverageLength, roles.City)); col != "" {
			roles.Match, roles.Rule = col, "long-text"
		}
	}

	if roles.Match == "" {
		return roles, &ColumnError{Columns: append([]string{}, t.Columns...)}
	}
	if roles.City == roles.Match {
		roles.City = ""
	}
	return roles, nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v != "" && v == s {
			return true
		}
	}
	return false
}

func normalizedCandidates(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if n := normalize.ColumnName(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// isText reports whether a column holds at least one non-numeric value.
func isText(values []string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64); err != nil {
			return true
		}
	}
	return false
}

func averageLength(values []string) float64 {
	total, n := 0, 0
	for _, v := range values {
		if v == "" {
			continue
		}
		total += utf8.RuneCountInString(v)
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}
