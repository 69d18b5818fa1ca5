// Package keyword turns a natural-language question into the handful of
// content-bearing terms worth searching for, plus a coarse intent label.
// Extraction is deterministic and side-effect free; the intent label feeds
// diagnostics and answer phrasing only, never ranking.
package keyword

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxKeywords caps how many terms a single question contributes.
const MaxKeywords = 5

// Intent labels the kind of question being asked.
type Intent string

const (
	IntentDefinition Intent = "definition"
	IntentProcess    Intent = "process"
	IntentTemporal   Intent = "temporal"
	IntentLocation   Intent = "location"
	IntentReason     Intent = "reason"
	IntentQuantity   Intent = "quantity"
	IntentGeneral    Intent = "general"
)

// Analysis is the extractor's view of one question.
type Analysis struct {
	Keywords []string `json:"keywords"`
	Intent   Intent   `json:"intent"`
}

// questionStopWords is the combined Spanish and English stop-word set used
// for keyword extraction. It is broader than the index tokenizer's set
// because interrogatives and auxiliaries carry no search value.
var questionStopWords = map[string]struct{}{
	// Spanish
	"el": {}, "la": {}, "de": {}, "que": {}, "y": {}, "a": {}, "en": {},
	"un": {}, "es": {}, "se": {}, "no": {}, "te": {}, "lo": {}, "le": {},
	"da": {}, "su": {}, "por": {}, "son": {}, "con": {}, "para": {},
	"una": {}, "las": {}, "los": {}, "del": {}, "al": {}, "como": {},
	"más": {}, "pero": {}, "sus": {}, "hay": {}, "está": {}, "están": {},
	"qué": {}, "cuál": {}, "cuáles": {}, "cómo": {}, "cuándo": {},
	"dónde": {}, "quién": {}, "cuánto": {}, "cuánta": {}, "cuántos": {},
	"cuántas": {}, "porqué": {}, "sobre": {}, "este": {}, "esta": {},
	"hace": {}, "dice": {}, "documento": {}, "texto": {},
	// English
	"the": {}, "of": {}, "and": {}, "to": {}, "in": {}, "is": {},
	"it": {}, "you": {}, "that": {}, "was": {}, "for": {}, "on": {},
	"are": {}, "with": {}, "his": {}, "they": {}, "at": {}, "this": {},
	"have": {}, "from": {}, "or": {}, "had": {}, "by": {}, "what": {},
	"which": {}, "when": {}, "where": {}, "who": {}, "whom": {},
	"why": {}, "how": {}, "does": {}, "do": {}, "did": {}, "can": {},
	"could": {}, "would": {}, "should": {}, "will": {}, "there": {},
	"about": {}, "many": {}, "much": {}, "mean": {}, "means": {},
	"said": {}, "says": {}, "tell": {}, "document": {}, "page": {},
}

// Extract analyses a question and returns up to MaxKeywords content words
// in question order, lower-cased, plus the question's intent. A question
// with no extractable keywords yields an empty list; callers treat that as
// "cannot search", not as "match nothing".
func Extract(question string) Analysis {
	lower := strings.ToLower(strings.TrimSpace(question))
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	keywords := make([]string, 0, MaxKeywords)
	seen := make(map[string]struct{})
	for _, word := range words {
		if len(keywords) == MaxKeywords {
			break
		}
		if utf8.RuneCountInString(word) <= 3 {
			continue
		}
		if _, isStop := questionStopWords[word]; isStop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	return Analysis{
		Keywords: keywords,
		Intent:   classify(lower),
	}
}

// classify maps interrogative markers to an intent label. First match wins;
// questions with no recognised marker are general.
func classify(lower string) Intent {
	switch {
	case containsAny(lower, "qué es", "qué significa", "what is", "what are", "what does", "definición", "definition", "meaning"):
		return IntentDefinition
	case containsAny(lower, "cómo", "how to", "how do", "how does", "how can", "proceso", "process", "pasos", "steps"):
		return IntentProcess
	case containsAny(lower, "cuándo", "when"):
		return IntentTemporal
	case containsAny(lower, "dónde", "where"):
		return IntentLocation
	case containsAny(lower, "por qué", "porqué", "why"):
		return IntentReason
	case containsAny(lower, "cuánto", "cuánta", "cuántos", "cuántas", "how much", "how many"):
		return IntentQuantity
	default:
		return IntentGeneral
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
