package chunker

import (
	"unicode"
	"unicode/utf8"
)

// Lexeme is a byte span [Start, End) of one token.
type Lexeme struct {
	Start int
	End   int
}

// Lex splits text into lexemes: runs of letters, digits and underscores, or
// a single other non-space rune. Whitespace separates lexemes and belongs to
// no lexeme.
func Lex(text string) []Lexeme {
	var out []Lexeme
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case isWordRune(r):
			start := i
			i += size
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !isWordRune(r) {
					break
				}
				i += size
			}
			out = append(out, Lexeme{Start: start, End: i})
		default:
			out = append(out, Lexeme{Start: i, End: i + size})
			i += size
		}
	}
	return out
}

// CountTokens returns the number of lexemes in text.
func CountTokens(text string) int {
	return len(Lex(text))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
