package utils

import (
	"sort"
	"strings"
)

// NormalizeSet trims, drops empties, de-duplicates and sorts a value
// set. Derived attribute sets go through this before every write so
// repeated joins produce byte-identical results.
func NormalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
