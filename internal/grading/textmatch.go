package grading

import (
	"strings"
	"unicode/utf8"
)

// normalize casefolds and trims surrounding whitespace. "  TERE  " and
// "tere" compare equal; interior spacing is preserved.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
