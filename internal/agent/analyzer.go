package agent

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/osintlab/sleuth/internal/news"
)

// relevanceThreshold is the minimum average retrieval score considered
// sufficient to answer without refining the query.
const relevanceThreshold = 0.65

// minArticlesWithContent is how many substantive articles a news batch
// needs before it counts as relevant.
const minArticlesWithContent = 3

// stopWords are interrogatives and function words stripped from queries
// before keyword matching.
var stopWords = map[string]bool{
	"what": true, "who": true, "where": true, "when": true, "how": true,
	"why": true, "is": true, "are": true, "the": true, "a": true,
	"an": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true,
}

var wordRe = regexp.MustCompile(`\b\w+\b`)

// queryKeywords extracts the distinct significant terms of a query,
// lowercased, in first-seen order.
func queryKeywords(query string) []string {
	seen := map[string]bool{}
	var keywords []string
	for _, w := range wordRe.FindAllString(strings.ToLower(query), -1) {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

// AnalyzeEvidence scores retrieved evidence against the query. It is pure:
// the same query and evidence always produce the same analysis.
func AnalyzeEvidence(query string, evidence []EvidenceItem) Analysis {
	if len(evidence) == 0 {
		return Analysis{
			MissingInformation: []string{"No documents retrieved"},
			NeedsRefinement:    true,
			RefinementReason:   "No relevant documents found",
		}
	}

	keywords := queryKeywords(query)

	var sum float64
	for _, item := range evidence {
		sum += item.Relevance
	}
	avg := sum / float64(len(evidence))

	termMatches := map[string]int{}
	var missing []string
	for _, term := range keywords {
		found := false
		for _, item := range evidence {
			if strings.Contains(strings.ToLower(item.Content), term) {
				found = true
				termMatches[term]++
			}
		}
		if !found {
			missing = append(missing, term)
		}
	}

	needsRefinement := avg < relevanceThreshold || float64(len(missing)) > float64(len(keywords))/2

	a := Analysis{
		HasRelevantInfo:  avg >= relevanceThreshold,
		AverageRelevance: avg,
		TermMatches:      termMatches,
		MissingTerms:     missing,
		NeedsRefinement:  needsRefinement,
	}
	if needsRefinement {
		a.RefinementReason = refinementReason(avg, missing)
	}
	return a
}

func refinementReason(avg float64, missing []string) string {
	var reasons []string
	if avg < relevanceThreshold {
		reasons = append(reasons, "retrieved documents have low relevance scores")
	}
	if len(missing) > 0 {
		reasons = append(reasons, "key terms not found: "+strings.Join(missing, ", "))
	}
	return "Query refinement needed because " + strings.Join(reasons, " and ")
}

// AnalyzeArticles assesses a news batch: substantive article count, presence
// of retrieval-failure markers, and recency within the last three days.
func AnalyzeArticles(articles []news.Article, now time.Time) NewsAnalysis {
	if len(articles) == 0 {
		return NewsAnalysis{
			NeedsRefinement:  true,
			RefinementReason: "No relevant news articles found",
		}
	}

	withContent := 0
	hasErrors := false
	recent := 0
	for _, a := range articles {
		if a.HasContent() {
			withContent++
		}
		if a.IsError() {
			hasErrors = true
		}
		if a.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
				if now.Sub(t) <= 3*24*time.Hour {
					recent++
				}
			}
		}
	}

	needsRefinement := hasErrors || withContent < minArticlesWithContent

	a := NewsAnalysis{
		HasRelevantInfo:     withContent >= minArticlesWithContent,
		TotalArticles:       len(articles),
		ArticlesWithContent: withContent,
		RecentArticles:      recent,
		HasErrors:           hasErrors,
		NeedsRefinement:     needsRefinement,
	}
	if needsRefinement {
		a.RefinementReason = newsRefinementReason(hasErrors, withContent)
	}
	return a
}

func newsRefinementReason(hasErrors bool, withContent int) string {
	var reasons []string
	if hasErrors {
		reasons = append(reasons, "API errors occurred during news retrieval")
	}
	if withContent < minArticlesWithContent {
		reasons = append(reasons, fmt.Sprintf("only found %d articles with content", withContent))
	}
	return "Query refinement needed because " + strings.Join(reasons, " and ")
}
