package index

import (
	"regexp"
	"sort"
	"strings"
)

// ScanPages is the regex fallback used when a document's content is not in
// the index yet. It scans raw page text for the keywords, case-insensitively
// on word boundaries, and produces matches scored by occurrence count with
// line-context snippets. Slower than the index, but always available.
func ScanPages(docID, filename string, pages map[int]string, keywords []string) []Match {
	if len(keywords) == 0 || len(pages) == 0 {
		return nil
	}
	escaped := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		escaped = append(escaped, regexp.QuoteMeta(kw))
	}
	if len(escaped) == 0 {
		return nil
	}
	pattern, err := regexp.Compile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
	if err != nil {
		return nil
	}

	matches := make([]Match, 0)
	for pageNum, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		locs := pattern.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		excerpts := []string{lineSnippet(text, locs[0], pattern)}
		if second := secondExcerpt(text, locs, pattern, excerpts[0]); second != "" {
			excerpts = append(excerpts, second)
		}
		matches = append(matches, Match{
			DocID:    docID,
			Filename: filename,
			Page:     pageNum,
			Score:    float64(len(locs)),
			Snippet:  excerpts[0],
			Excerpts: excerpts,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Page < matches[j].Page
	})
	return matches
}

// secondExcerpt returns a context window for the first occurrence that
// produces a different excerpt than the first one, if any.
func secondExcerpt(text string, locs [][]int, pattern *regexp.Regexp, first string) string {
	for _, loc := range locs[1:] {
		if candidate := lineSnippet(text, loc, pattern); candidate != first {
			return candidate
		}
	}
	return ""
}

// lineSnippet returns the line containing the first match plus one line of
// context on either side, with all keyword occurrences marked.
func lineSnippet(text string, firstMatch []int, pattern *regexp.Regexp) string {
	lineStart := strings.LastIndexByte(text[:firstMatch[0]], '\n') + 1
	if prev := strings.LastIndexByte(text[:max(lineStart-1, 0)], '\n'); prev >= 0 {
		lineStart = prev + 1
	} else {
		lineStart = 0
	}
	lineEnd := len(text)
	if next := strings.IndexByte(text[firstMatch[1]:], '\n'); next >= 0 {
		lineEnd = firstMatch[1] + next
		if after := strings.IndexByte(text[lineEnd+1:], '\n'); after >= 0 {
			lineEnd = lineEnd + 1 + after
		} else {
			lineEnd = len(text)
		}
	}
	window := strings.TrimSpace(text[lineStart:lineEnd])
	marked := pattern.ReplaceAllString(window, "<mark>$1</mark>")

	var sb strings.Builder
	if lineStart > 0 {
		sb.WriteString("...")
	}
	sb.WriteString(marked)
	if lineEnd < len(text) {
		sb.WriteString("...")
	}
	return sb.String()
}
