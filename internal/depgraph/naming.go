package depgraph

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// MatchName reports whether a field-shape name corresponds to a known
// collection name: exact, pluralized, or singularized, case-insensitively.
// This normalization is the correctness-critical piece of dependency
// resolution, so it lives here rather than inline in graph construction.
func MatchName(fieldName, collectionName string) bool {
	f := strings.ToLower(fieldName)
	c := strings.ToLower(collectionName)
	if f == c {
		return true
	}
	if inflection.Plural(f) == c {
		return true
	}
	if inflection.Singular(f) == c {
		return true
	}
	return false
}

// ResolveCollection returns the first collection name (in the given order)
// that the field name corresponds to, excluding self.
func ResolveCollection(fieldName, self string, collections []string) (string, bool) {
	for _, c := range collections {
		if c == self {
			continue
		}
		if MatchName(fieldName, c) {
			return c, true
		}
	}
	return "", false
}
