package agent

import (
	"context"
	"log"
	"time"

	"github.com/osintlab/sleuth/internal/agent/telemetry"
	"github.com/osintlab/sleuth/internal/news"
)

// NewsAgent runs the news retrieval loop. Unlike the document loop it
// allows a single refinement, and upstream failures arrive as ErrorSource
// articles rather than errors.
type NewsAgent struct {
	search    NewsSearcher
	synth     *Synthesizer
	telemetry *telemetry.Telemetry
	logger    *log.Logger
	now       func() time.Time
}

func NewNewsAgent(search NewsSearcher, synth *Synthesizer, tel *telemetry.Telemetry) *NewsAgent {
	return &NewsAgent{
		search:    search,
		synth:     synth,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[NEWS-AGENT] ", log.LstdFlags),
		now:       time.Now,
	}
}

// Query answers from recent news, retrying once with a broadened query when
// the first batch is thin or contained retrieval failures.
func (a *NewsAgent) Query(ctx context.Context, query string, opts QueryOptions) (NewsResult, error) {
	opts = opts.withDefaults()
	started := time.Now()

	state := NewsWorkingState{Query: query, OriginalQuery: query}
	for {
		if err := ctx.Err(); err != nil {
			a.telemetry.RecordQuery("news", time.Since(started), false)
			return NewsResult{}, err
		}

		retrieveStart := time.Now()
		articles, err := a.search.Search(ctx, state.Query, news.SearchOptions{
			DaysBack:   opts.DaysBack,
			MaxResults: opts.MaxResults,
			Language:   opts.Language,
		})
		a.telemetry.RecordSourceAccess("newsapi", time.Since(retrieveStart), err == nil, len(articles))
		if err != nil {
			a.telemetry.RecordQuery("news", time.Since(started), false)
			return NewsResult{}, err
		}

		state.Articles = articles
		state.Analysis = AnalyzeArticles(articles, a.now())

		if state.Analysis.NeedsRefinement && state.RefinedQuery == "" {
			refined := RefineNewsQuery(state.OriginalQuery)
			a.logger.Printf("refining news query: %q -> %q", state.Query, refined)
			state.Query = refined
			state.RefinedQuery = refined
			continue
		}
		break
	}

	var answer Answer
	if len(state.Articles) > 0 {
		var err error
		answer, err = a.synth.GenerateNewsSummary(ctx, state.OriginalQuery, state.Articles, state.Analysis, opts)
		if err != nil {
			a.telemetry.RecordQuery("news", time.Since(started), false)
			return NewsResult{}, err
		}
	} else {
		answer = Answer{Text: noArticlesAnswer, Confidence: ConfidenceLow}
	}

	a.telemetry.RecordQuery("news", time.Since(started), true)
	return NewsResult{
		Answer:       answer.Text,
		Sources:      newsSourceRefs(state.Articles),
		Query:        query,
		RefinedQuery: state.RefinedQuery,
		Confidence:   answer.Confidence,
	}, nil
}

// newsSourceRefs converts articles to display references, preferring the
// description over the raw content for display.
func newsSourceRefs(articles []news.Article) []SourceRef {
	refs := make([]SourceRef, 0, len(articles))
	for _, a := range articles {
		content := a.Description
		if content == "" {
			content = a.Content
		}
		refs = append(refs, SourceRef{
			Title:       a.Title,
			Content:     content,
			Document:    a.Source,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Relevance:   a.Relevance,
		})
	}
	return refs
}
