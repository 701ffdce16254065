package rag

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeQuery lowercases, strips punctuation except question marks and
// hyphens, and collapses whitespace. Both indexes see this same normalized
// text so their rankings stay comparable.
func NormalizeQuery(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range strings.ToLower(strings.TrimSpace(query)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case r == '?' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TokenizeForLexical produces the token stream the lexical index scores:
// normalized words with single-character tokens dropped.
func TokenizeForLexical(text string) []string {
	fields := strings.Fields(NormalizeQuery(text))
	tokens := fields[:0]
	for _, t := range fields {
		if utf8.RuneCountInString(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
