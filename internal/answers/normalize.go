package answers

import (
	"regexp"
	"strings"
)

var (
	whitespace     = regexp.MustCompile(`\s+`)
	requiredSuffix = regexp.MustCompile(`\s+Required$`)
)

// Normalize trims, collapses whitespace and drops the trailing "Required"
// marker the form appends to mandatory questions. Casing is preserved and
// invalid UTF-8 is replaced.
func Normalize(question string) string {
	q := strings.ToValidUTF8(question, "\uFFFD")
	q = whitespace.ReplaceAllString(strings.TrimSpace(q), " ")
	return strings.TrimSpace(requiredSuffix.ReplaceAllString(q, ""))
}

// Key is the lookup key for a question.
func Key(question string) string {
	return strings.ToLower(Normalize(question))
}
