package slug

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Fallback is used for titles that have no characters left after Make
const Fallback = "post"

// Make converts a title into a URL-safe identifier: lowercase ASCII letters, digits and single
// hyphens, with no hyphen at either end. Diacritics are stripped ("povećati" -> "povecati"); any
// other character outside [a-z0-9] is dropped. The result can be empty.
func Make(title string) string {
	s := strings.ToLower(title)

	// transformers keep state, so the chain is built per call
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ForTitle is Make with the Fallback applied to empty results
func ForTitle(title string) string {
	if s := Make(title); s != "" {
		return s
	}
	return Fallback
}

// WithTimestamp appends the epoch milliseconds of t, the suffix used to break slug collisions
func WithTimestamp(s string, t time.Time) string {
	return s + "-" + strconv.FormatInt(t.UnixMilli(), 10)
}

// HasBase reports whether s is base itself or base with a collision suffix from WithTimestamp
func HasBase(s, base string) bool {
	if s == base {
		return true
	}
	suffix, ok := strings.CutPrefix(s, base+"-")
	if !ok || suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
