// Package sanitize cleans client-provided names and message bodies.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var reStripName = regexp.MustCompile(`[^\w.-]`)

// Name returns a name with only allowed characters.
func Name(s string) string {
	return reStripName.ReplaceAllString(s, "")
}

// Data returns s as printable single-line text: invalid UTF-8 and control
// characters are dropped, other whitespace becomes a single space and the
// result is trimmed.
func Data(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
