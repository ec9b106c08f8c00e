package core

import "strings"

// CleanString strips surrounding whitespace from s. Pass lower to also
// fold it to lower case; emails must not be folded, they are matched as
// stored.
func CleanString(s string, lower ...bool) string {
	out := strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		out = strings.ToLower(out)
	}
	return out
}
