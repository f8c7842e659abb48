package agent

import (
	"regexp"
	"strings"
)

// newsRefinementSuffix broadens a news query on its single retry.
const newsRefinementSuffix = " latest news updates report"

// maxContextTerms caps how many mined phrases a refined query absorbs.
const maxContextTerms = 3

var phraseRe = regexp.MustCompile(`\b\w+(?:\s\w+)?\b`)

// RefineQuery rewrites the original query using the relevance analysis and
// the evidence already seen. It is deterministic and makes no model calls.
func RefineQuery(originalQuery string, analysis Analysis, evidence []EvidenceItem) string {
	missing := analysis.MissingTerms

	if len(missing) == 0 && analysis.AverageRelevance >= relevanceThreshold {
		return originalQuery
	}

	contextTerms := mineContextTerms(evidence)

	if len(missing) > 0 {
		refined := originalQuery + " related to " + strings.Join(missing, " and ")
		if len(contextTerms) > 0 {
			refined += " in context of " + strings.Join(contextTerms, ", ")
		}
		return refined
	}
	if len(contextTerms) == 0 {
		return originalQuery
	}
	return originalQuery + " specifically about " + strings.Join(contextTerms, ", ")
}

// mineContextTerms pulls distinct one- and two-word phrases out of the
// retrieved evidence. Phrases are kept in first-seen order and capped at
// maxContextTerms, not ranked by frequency, so earlier evidence items win.
func mineContextTerms(evidence []EvidenceItem) []string {
	seen := map[string]bool{}
	var terms []string
	for _, item := range evidence {
		content := strings.ToLower(item.Content)
		for _, phrase := range phraseRe.FindAllString(content, -1) {
			if len(phrase) <= 3 || stopWords[phrase] || seen[phrase] {
				continue
			}
			seen[phrase] = true
			terms = append(terms, phrase)
			if len(terms) >= maxContextTerms {
				return terms
			}
		}
	}
	return terms
}

// RefineNewsQuery broadens a news query with recency terms.
func RefineNewsQuery(originalQuery string) string {
	return originalQuery + newsRefinementSuffix
}
