// Package strcase converts identifiers between naming conventions.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake converts a Go identifier or a spaced, dashed or dotted phrase
// to snake_case. Initialisms stay together: "IconURL" becomes "icon_url".
func ToLowerSnake(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 4)

	runes := []rune(s)
	pending := false

	for i, r := range runes {
		if r == ' ' || r == '-' || r == '.' || r == '_' {
			pending = b.Len() > 0
			continue
		}

		if b.Len() > 0 && !pending && unicode.IsUpper(r) {
			prev := runes[i-1]
			var next rune
			if i+1 < len(runes) {
				next = runes[i+1]
			}

			// lower/digit -> upper (periodMS -> period_MS) or acronym -> word (HTTPServer -> HTTP_Server)
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && next != 0 && unicode.IsLower(next)) {
				pending = true
			}
		}

		if pending {
			b.WriteRune('_')
			pending = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
