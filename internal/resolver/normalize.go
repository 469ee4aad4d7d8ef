// Package resolver maps free conversational text onto catalog names: the
// target table, the trigger message and the affected columns.
package resolver

import (
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`\w+`)

// Normalize lower-cases s and drops every character outside [a-z0-9].
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Tokenize returns the lower-cased word tokens of s.
func Tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}
