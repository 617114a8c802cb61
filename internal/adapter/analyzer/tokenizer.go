package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer produces lexical terms for BM25. Code identifiers are indexed
// whole and by their snake_case / camelCase parts.
type Tokenizer struct {
	stopwords map[string]struct{}
	useStem   bool
}

func NewTokenizer(useStemming bool) *Tokenizer {
	return &Tokenizer{
		stopwords: defaultStopwords(),
		useStem:   useStemming,
	}
}

// Tokenize splits text into lowercase terms.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	emit := func(word string) {
		word = strings.ToLower(word)
		if len(word) < 2 {
			return
		}
		if _, isStop := t.stopwords[word]; isStop {
			return
		}
		if t.useStem {
			word = stem(word)
		}
		tokens = append(tokens, word)
	}

	for _, word := range words {
		emit(word)
		parts := splitIdentifier(word)
		if len(parts) > 1 {
			for _, p := range parts {
				emit(p)
			}
		}
	}
	return tokens
}

// splitWords splits on anything that is not a letter, digit or underscore.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

// splitIdentifier breaks snake_case and camelCase identifiers. "HTTPServer"
// yields "HTTP", "Server".
func splitIdentifier(word string) []string {
	var parts []string
	for _, seg := range strings.Split(word, "_") {
		if seg == "" {
			continue
		}
		runes := []rune(seg)
		start := 0
		for i := 1; i < len(runes); i++ {
			prev, cur := runes[i-1], runes[i]
			boundary := unicode.IsLower(prev) && unicode.IsUpper(cur)
			if unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				boundary = true
			}
			if boundary {
				parts = append(parts, string(runes[start:i]))
				start = i
			}
		}
		parts = append(parts, string(runes[start:]))
	}
	return parts
}

// stem strips common English inflections; short words are left alone.
func stem(word string) string {
	switch {
	case len(word) > 5 && strings.HasSuffix(word, "ing"):
		word = strings.TrimSuffix(word, "ing")
		if n := len(word); n > 2 && word[n-1] == word[n-2] {
			word = word[:n-1]
		}
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		word = strings.TrimSuffix(word, "ies") + "y"
	case len(word) > 4 && strings.HasSuffix(word, "ed"):
		word = strings.TrimSuffix(word, "ed")
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		word = strings.TrimSuffix(word, "s")
	}
	return word
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
		"self", "def", "func", "return", "none", "nil", "null",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
