// Package index implements an in-memory inverted index over document pages.
// Postings are keyed by (document, page) so search results carry page-level
// citations. The package also provides the tokenizer, query parser, ranking,
// snippet generation, and a regex-based fallback scan for unindexed content.
package index

import (
	"strings"
	"unicode"
)

// stopWords combines English and Spanish function words. Both languages are
// covered because the ingested corpus mixes them freely.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
	"de": {}, "la": {}, "el": {}, "en": {}, "los": {}, "las": {},
	"del": {}, "se": {}, "un": {}, "una": {}, "por": {}, "con": {},
	"para": {}, "es": {}, "al": {}, "lo": {}, "como": {}, "más": {},
	"pero": {}, "sus": {}, "le": {}, "ya": {}, "este": {}, "esta": {},
	"entre": {}, "cuando": {}, "muy": {}, "sin": {}, "sobre": {},
	"también": {}, "hasta": {}, "hay": {}, "donde": {}, "desde": {},
	"todo": {}, "todos": {}, "nos": {}, "durante": {}, "uno": {},
	"les": {}, "ni": {}, "contra": {}, "otros": {}, "ese": {},
	"eso": {}, "qué": {}, "son": {}, "está": {}, "están": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into a slice of stemmed, lowercased Tokens with
// stop-words removed. Positions count surviving tokens, not raw words.
func Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words)/2)
	pos := 0
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		stemmed := stem(word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     stemmed,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// suffixRules is an ordered suffix-stripping table covering English and
// Spanish derivational morphology. The first matching rule wins.
var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"aciones", "a", 2},
	{"ational", "ate", 2},
	{"amiento", "a", 2},
	{"ación", "a", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"idades", "idad", 2},
	{"ations", "e", 3},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"ation", "e", 3},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"iendo", "", 3},
	{"mente", "", 3},
	{"ando", "a", 2},
	{"idad", "", 3},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ar", "a", 3},
	{"s", "", 3},
}

// stem applies suffix stripping followed by a trailing-e drop, so that
// "configure" and "configuration" reduce to the same term.
func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			candidate := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(candidate) >= rule.minLen {
				word = candidate
				break
			}
		}
	}
	if len(word) > 4 && strings.HasSuffix(word, "e") {
		word = word[:len(word)-1]
	}
	return word
}
