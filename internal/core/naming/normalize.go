// Package naming turns raw model output into filename-safe tokens.
package naming

import (
	"strings"
	"unicode"
)

// Normalize trims, lowercases, collapses every whitespace run into a single
// hyphen and finally drops every rune outside [a-z0-9-]. It never fails and
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(lowered))
	inSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		if isTokenRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-':
		return true
	default:
		return false
	}
}

// Extension returns the text after the last '.' of name, case preserved.
// ok is false when name has no dot or ends with one.
func Extension(name string) (ext string, ok bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return "", false
	}
	return name[idx+1:], true
}

// FinalName appends the original extension verbatim to an already normalized token.
func FinalName(normalized, originalName string) string {
	ext, ok := Extension(originalName)
	if !ok {
		return normalized
	}
	return normalized + "." + ext
}
