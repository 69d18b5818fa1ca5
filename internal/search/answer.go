package search

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/keyword"
)

// buildSingleAnswer composes the narrative for a single-document result:
// an intent-aware opening, page-cited excerpts, and a closing summary line.
func buildSingleAnswer(analysis keyword.Analysis, filename string, pages []PageHit, totalMatches int) string {
	var sb strings.Builder
	sb.WriteString(opening(analysis, filename))
	sb.WriteString("\n\n")

	for _, hit := range pages {
		fmt.Fprintf(&sb, "Page %d:\n", hit.Page)
		for _, excerpt := range hit.Excerpts {
			fmt.Fprintf(&sb, "  %s\n", excerpt)
		}
	}

	pageWord := "pages"
	if len(pages) == 1 {
		pageWord = "page"
	}
	fmt.Fprintf(&sb, "\nFound %d relevant %s across %d %s of %s.",
		totalMatches, plural(totalMatches, "passage", "passages"),
		len(pages), pageWord, filename)
	return sb.String()
}

// buildMultiAnswer composes the narrative for a multi-document result,
// citing at most the top five documents.
func buildMultiAnswer(analysis keyword.Analysis, summaries []DocumentSummary, cmp *Comparison) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Searched %d %s for %s.\n\n",
		len(summaries), plural(len(summaries), "document", "documents"),
		strings.Join(quoteAll(analysis.Keywords), ", "))

	cited := 0
	for _, s := range summaries {
		if s.Matches == 0 || cited == maxNarrativeDocs {
			break
		}
		cited++
		pages := make([]string, 0, len(s.TopPages))
		for _, p := range s.TopPages {
			pages = append(pages, fmt.Sprintf("%d", p.Page))
		}
		fmt.Fprintf(&sb, "%d. %s: %d %s (pages %s)\n",
			cited, s.Filename, s.Matches,
			plural(s.Matches, "match", "matches"),
			strings.Join(pages, ", "))
	}

	fmt.Fprintf(&sb, "\n%s is the most relevant document. %d of %d documents contained results, averaging %.2f matches each.",
		cmp.MostRelevant, cmp.DocsWithResults,
		cmp.DocsWithResults+cmp.DocsWithout, cmp.AvgMatches)
	return sb.String()
}

// opening phrases the lead-in according to the question's intent. The
// intent never influences which matches were found, only how the answer
// reads.
func opening(analysis keyword.Analysis, filename string) string {
	topic := strings.Join(quoteAll(analysis.Keywords), ", ")
	switch analysis.Intent {
	case keyword.IntentDefinition:
		return fmt.Sprintf("Here is what %s says about %s:", filename, topic)
	case keyword.IntentProcess:
		return fmt.Sprintf("These passages from %s describe the process involving %s:", filename, topic)
	case keyword.IntentTemporal:
		return fmt.Sprintf("These passages from %s mention timing related to %s:", filename, topic)
	case keyword.IntentLocation:
		return fmt.Sprintf("These passages from %s mention locations related to %s:", filename, topic)
	case keyword.IntentReason:
		return fmt.Sprintf("These passages from %s may explain %s:", filename, topic)
	case keyword.IntentQuantity:
		return fmt.Sprintf("These passages from %s contain figures related to %s:", filename, topic)
	default:
		return fmt.Sprintf("Relevant content found in %s for %s:", filename, topic)
	}
}

func quoteAll(words []string) []string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "'" + w + "'"
	}
	return quoted
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
