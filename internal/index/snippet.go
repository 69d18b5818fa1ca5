package index

import (
	"strings"
	"unicode"
)

const (
	snippetWindow  = 30
	maxPageExcerpt = 2
)

// makeExcerpts extracts up to max non-overlapping word windows ordered by
// match density, each with matched words wrapped in <mark> tags and
// ellipses at cut edges. The first excerpt is the best one.
func makeExcerpts(text string, terms map[string]struct{}, max int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	matched := make([]bool, len(words))
	any := false
	for i, w := range words {
		if _, ok := terms[normalizeWord(w)]; ok {
			matched[i] = true
			any = true
		}
	}
	if !any {
		return []string{renderWindow(words, matched, 0, min(snippetWindow, len(words)))}
	}

	excerpts := make([]string, 0, max)
	taken := make([]bool, len(words))
	for len(excerpts) < max {
		start, end, count := bestFreeWindow(matched, taken, len(words))
		if count == 0 {
			break
		}
		for i := start; i < end; i++ {
			taken[i] = true
		}
		excerpts = append(excerpts, renderWindow(words, matched, start, end))
	}
	return excerpts
}

func renderWindow(words []string, matched []bool, start, end int) string {
	var sb strings.Builder
	if start > 0 {
		sb.WriteString("...")
	}
	for i := start; i < end; i++ {
		if i > start {
			sb.WriteByte(' ')
		}
		if matched[i] {
			sb.WriteString("<mark>")
			sb.WriteString(words[i])
			sb.WriteString("</mark>")
		} else {
			sb.WriteString(words[i])
		}
	}
	if end < len(words) {
		sb.WriteString("...")
	}
	return sb.String()
}

// bestFreeWindow slides a fixed-size window over the words not yet claimed
// by an earlier excerpt and returns the earliest window with the highest
// count of matched, unclaimed words.
func bestFreeWindow(matched, taken []bool, n int) (start, end, count int) {
	size := snippetWindow
	if size > n {
		size = n
	}
	score := func(i int) int {
		if matched[i] && !taken[i] {
			return 1
		}
		return 0
	}
	current := 0
	for i := 0; i < size; i++ {
		current += score(i)
	}
	best, bestStart := current, 0
	for i := size; i < n; i++ {
		current += score(i) - score(i-size)
		if current > best {
			best = current
			bestStart = i - size + 1
		}
	}
	return bestStart, bestStart + size, best
}

// normalizeWord strips surrounding punctuation and stems, matching the
// tokenizer's view of the word.
func normalizeWord(w string) string {
	w = strings.TrimFunc(strings.ToLower(w), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(w) < 2 {
		return ""
	}
	if _, isStop := stopWords[w]; isStop {
		return ""
	}
	return stem(w)
}
