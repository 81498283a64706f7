//go:build libpostal

package parse

import (
	"strings"

	postal "github.com/openvenues/gopostal/parser"

	"github.com/route-matcher/internal/normalize"
)

// postalRefiner uses libpostal to pull the road, house number and city out of
// a free-text address.
type postalRefiner struct{}

// NewRefiner returns the libpostal-backed refiner.
func NewRefiner() AddressRefiner {
	return postalRefiner{}
}

func (postalRefiner) Refine(address string) (string, string) {
	components := postal.ParseAddress(address)

	extracted := make(map[string]string)
	for _, comp := range components {
		switch comp.Label {
		case "house", "road", "house_number", "city", "suburb":
			extracted[comp.Label] = comp.Value
		}
	}
	if extracted["road"] == "" {
		return "", ""
	}

	parts := []string{extracted["house"], extracted["road"], extracted["house_number"]}
	var key []string
	for _, p := range parts {
		if p != "" {
			key = append(key, p)
		}
	}

	city := extracted["city"]
	if city == "" {
		city = extracted["suburb"]
	}
	return normalize.Squash(strings.Join(key, " ")), normalize.Clean(city)
}
