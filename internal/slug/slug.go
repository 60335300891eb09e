// Package slug normalizes free-form identifiers (account groups, import
// tokens) into lowercase snake_case slugs.
package slug

import (
	"regexp"
	"strings"
)

var slugRE = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

// IsSlug reports whether s is already a valid slug: 2-40 chars of [a-z0-9_].
func IsSlug(s string) bool {
	return slugRE.MatchString(s)
}

// Slugify converts s to a slug: lowercase, any run of other characters
// becomes a single '_', capped at 40 chars with edge underscores trimmed.
func Slugify(s string) string {
	if s == "" {
		return s
	}
	out := make([]rune, 0, len(s))
	prevUnderscore := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			out = append(out, r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				out = append(out, '_')
				prevUnderscore = true
			}
		}
		if len(out) >= 40 {
			break
		}
	}
	return strings.Trim(string(out), "_")
}
