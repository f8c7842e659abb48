package agent

import (
	"context"
	"strings"

	"github.com/osintlab/sleuth/internal/llm"
	"github.com/osintlab/sleuth/internal/news"
)

// Confidence grades an answer. Unknown values rank lowest.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Score maps a confidence grade onto an ordinal scale for arbitration.
func (c Confidence) Score() int {
	switch strings.ToLower(string(c)) {
	case "high":
		return 3
	case "medium":
		return 2
	default:
		return 1
	}
}

// EvidenceItem is one retrieved document chunk.
type EvidenceItem struct {
	Content   string            `json:"content"`
	Document  string            `json:"document"`
	Relevance float64           `json:"relevance"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Analysis is the relevance assessment of retrieved evidence.
type Analysis struct {
	HasRelevantInfo    bool           `json:"has_relevant_info"`
	AverageRelevance   float64        `json:"average_relevance"`
	TermMatches        map[string]int `json:"term_matches,omitempty"`
	MissingTerms       []string       `json:"missing_terms,omitempty"`
	MissingInformation []string       `json:"missing_information,omitempty"`
	NeedsRefinement    bool           `json:"needs_refinement"`
	RefinementReason   string         `json:"refinement_reason,omitempty"`
}

// NewsAnalysis is the quality assessment of retrieved news articles.
type NewsAnalysis struct {
	HasRelevantInfo     bool   `json:"has_relevant_info"`
	TotalArticles       int    `json:"total_articles"`
	ArticlesWithContent int    `json:"articles_with_content"`
	RecentArticles      int    `json:"recent_articles"`
	HasErrors           bool   `json:"has_errors"`
	NeedsRefinement     bool   `json:"needs_refinement"`
	RefinementReason    string `json:"refinement_reason,omitempty"`
}

// Answer is a synthesized response with provenance.
type Answer struct {
	Text               string     `json:"answer"`
	HasContext         bool       `json:"has_context"`
	Sources            []string   `json:"sources"`
	Confidence         Confidence `json:"confidence"`
	MissingInformation []string   `json:"missing_information,omitempty"`
	ArticleCount       int        `json:"article_count,omitempty"`
}

// SourceRef is a display-ready reference to one supporting source.
type SourceRef struct {
	Type        string  `json:"type,omitempty"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Document    string  `json:"document"`
	URL         string  `json:"url,omitempty"`
	PublishedAt string  `json:"published_at,omitempty"`
	Relevance   float64 `json:"relevance"`
}

// DocumentResult is the outcome of one document retrieval loop.
type DocumentResult struct {
	Answer       string         `json:"answer"`
	Sources      []EvidenceItem `json:"sources"`
	Query        string         `json:"query"`
	RefinedQuery string         `json:"refined_query,omitempty"`
	Confidence   Confidence     `json:"confidence"`
}

// NewsResult is the outcome of one news retrieval loop.
type NewsResult struct {
	Answer       string      `json:"answer"`
	Sources      []SourceRef `json:"sources"`
	Query        string      `json:"query"`
	RefinedQuery string      `json:"refined_query,omitempty"`
	Confidence   Confidence  `json:"confidence"`
}

// CombinedResult merges the document and news loops.
type CombinedResult struct {
	Answer               string      `json:"answer"`
	Sources              []SourceRef `json:"sources"`
	Query                string      `json:"query"`
	Confidence           Confidence  `json:"confidence"`
	PrimarySource        string      `json:"primary_source"`
	DocumentRefinedQuery string      `json:"document_refined_query,omitempty"`
	NewsRefinedQuery     string      `json:"news_refined_query,omitempty"`
}

// WorkingState is the explicit record threaded through the document loop.
// Every transition of the loop reads and writes exactly this.
type WorkingState struct {
	Query           string
	OriginalQuery   string
	Evidence        []EvidenceItem
	Analysis        Analysis
	RefinedQuery    string
	RefinementCount int
}

// NewsWorkingState is the record threaded through the news loop. The loop
// allows a single refinement, tracked by RefinedQuery being set.
type NewsWorkingState struct {
	Query         string
	OriginalQuery string
	Articles      []news.Article
	Analysis      NewsAnalysis
	RefinedQuery  string
}

// QueryOptions carries the per-call knobs shared by both loops. Chat history
// is owned by the caller and injected here; the pipeline never stores it.
type QueryOptions struct {
	Temperature float64
	MaxTokens   int
	TopK        int
	MaxResults  int
	DaysBack    int
	Language    string
	History     []llm.Message

	// SkipDocuments and SkipNews gate the combined path's loops. Zero
	// values run both.
	SkipDocuments bool
	SkipNews      bool
}

func (o QueryOptions) withDefaults() QueryOptions {
	if o.Temperature == 0 {
		o.Temperature = 0.7
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 500
	}
	if o.TopK == 0 {
		o.TopK = 5
	}
	if o.MaxResults == 0 {
		o.MaxResults = 10
	}
	if o.DaysBack == 0 {
		o.DaysBack = 7
	}
	if o.Language == "" {
		o.Language = "en"
	}
	return o
}

// DocumentSearcher retrieves evidence chunks for a query.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]EvidenceItem, error)
}

// NewsSearcher retrieves recent news articles for a query. Implementations
// report upstream failures as ErrorSource articles, not errors.
type NewsSearcher interface {
	Search(ctx context.Context, query string, opts news.SearchOptions) ([]news.Article, error)
}
