// Package placeholder fills and inspects "{name}" style placeholders used by prompt
// templates and locale strings.
package placeholder

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var pattern = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)

// Names returns the sorted, de-duplicated placeholder names found in text.
func Names(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fill replaces every known placeholder with its value. Placeholders without a value
// are left untouched.
func Fill(text string, vars map[string]any) string {
	if len(vars) == 0 {
		return text
	}
	return pattern.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := vars[name]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

// Missing lists the placeholders of text that vars does not provide.
func Missing(text string, vars map[string]any) []string {
	var missing []string
	for _, n := range Names(text) {
		if _, ok := vars[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// SameSet reports whether a and b contain the same names.
func SameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return strings.Join(a, ",") == strings.Join(b, ",")
}
