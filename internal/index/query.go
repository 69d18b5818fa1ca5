package index

import "strings"

// QueryType selects how multiple terms combine.
type QueryType int

const (
	QueryAND QueryType = iota
	QueryOR
)

// QueryPlan is the normalised form of a raw query string: stemmed terms,
// exact phrases, excluded terms, and the combine mode.
type QueryPlan struct {
	Terms        []string
	Phrases      [][]string
	ExcludeTerms []string
	Type         QueryType
	RawQuery     string
}

// Empty reports whether the plan carries nothing searchable.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0 && len(p.Phrases) == 0
}

// ParseQuery normalises a raw query into a QueryPlan. Terms combine with
// implicit AND; an OR keyword switches the whole query to OR mode; NOT
// excludes the following term; double-quoted runs become exact phrases.
// Malformed input is repaired, never rejected: an unbalanced quote is
// stripped and its words treated as plain terms.
func ParseQuery(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		Phrases:      make([][]string, 0),
		ExcludeTerms: make([]string, 0),
		Type:         QueryAND,
		RawQuery:     query,
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return plan
	}
	if strings.Count(query, `"`)%2 != 0 {
		query = strings.ReplaceAll(query, `"`, "")
	}

	rest := query
	for {
		start := strings.Index(rest, `"`)
		if start < 0 {
			plan.addWords(rest)
			break
		}
		plan.addWords(rest[:start])
		end := strings.Index(rest[start+1:], `"`)
		phrase := rest[start+1 : start+1+end]
		if terms := termsOf(phrase); len(terms) > 0 {
			plan.Phrases = append(plan.Phrases, terms)
		}
		rest = rest[start+end+2:]
	}
	return plan
}

// addWords parses an unquoted fragment, honoring AND/OR/NOT operators.
func (p *QueryPlan) addWords(fragment string) {
	excludeNext := false
	for _, word := range strings.Fields(fragment) {
		switch strings.ToUpper(word) {
		case "AND":
			continue
		case "OR":
			p.Type = QueryOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		tokens := Tokenize(word)
		if len(tokens) == 0 {
			excludeNext = false
			continue
		}
		term := tokens[0].Term
		if excludeNext {
			p.ExcludeTerms = append(p.ExcludeTerms, term)
			excludeNext = false
		} else {
			p.Terms = append(p.Terms, term)
		}
	}
}

// termsOf tokenizes a phrase into its stemmed terms in order.
func termsOf(phrase string) []string {
	tokens := Tokenize(phrase)
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		terms = append(terms, t.Term)
	}
	return terms
}
