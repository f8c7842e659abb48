package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/osintlab/sleuth/internal/news"
)

type fakeNewsSearch struct {
	results [][]news.Article
	err     error
	queries []string
}

func (f *fakeNewsSearch) Search(_ context.Context, query string, _ news.SearchOptions) ([]news.Article, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.queries) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	if idx < 0 {
		return nil, nil
	}
	return f.results[idx], nil
}

func testArticles(n int) []news.Article {
	names := []string{"Reuters", "AP", "BBC", "AFP", "DW"}
	out := make([]news.Article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, news.Article{
			Title:   "headline",
			Source:  names[i%len(names)],
			Content: "article body",
			URL:     "https://example.com",
		})
	}
	return out
}

func TestNewsAgentHealthyBatch(t *testing.T) {
	search := &fakeNewsSearch{results: [][]news.Article{testArticles(4)}}
	agent := NewNewsAgent(search, NewSynthesizer(&fakeLLM{reply: "news summary"}, false), newTestTelemetry())

	res, err := agent.Query(context.Background(), "cyber attack", QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(search.queries) != 1 {
		t.Errorf("search called %d times, want 1", len(search.queries))
	}
	if res.Answer != "news summary" || res.Confidence != ConfidenceHigh {
		t.Errorf("result = %+v", res)
	}
	if len(res.Sources) != 4 {
		t.Errorf("sources = %d, want 4", len(res.Sources))
	}
}

func TestNewsAgentModelOutageKeepsAnswer(t *testing.T) {
	search := &fakeNewsSearch{results: [][]news.Article{testArticles(4)}}
	agent := NewNewsAgent(search, NewSynthesizer(&fakeLLM{err: errors.New("model overloaded")}, false), newTestTelemetry())

	res, err := agent.Query(context.Background(), "cyber attack", QueryOptions{})
	if err != nil {
		t.Fatalf("model outage must not fail the query: %v", err)
	}
	if !strings.HasPrefix(res.Answer, "Error generating response:") {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want low", res.Confidence)
	}
	if len(res.Sources) != 4 {
		t.Errorf("sources = %d, want 4", len(res.Sources))
	}
}

func TestNewsAgentSingleRefinement(t *testing.T) {
	// both batches are thin: the loop must retry exactly once
	thin := testArticles(2)
	search := &fakeNewsSearch{results: [][]news.Article{thin, thin}}
	agent := NewNewsAgent(search, NewSynthesizer(&fakeLLM{reply: "summary"}, false), newTestTelemetry())

	res, err := agent.Query(context.Background(), "cyber attack", QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(search.queries) != 2 {
		t.Fatalf("search called %d times, want 2", len(search.queries))
	}
	if search.queries[1] != "cyber attack latest news updates report" {
		t.Errorf("refined query = %q", search.queries[1])
	}
	if res.RefinedQuery != "cyber attack latest news updates report" {
		t.Errorf("reported refined query = %q", res.RefinedQuery)
	}
	if res.Query != "cyber attack" {
		t.Errorf("result must carry the original query, got %q", res.Query)
	}
}

func TestNewsAgentErrorSentinelTriggersRefinement(t *testing.T) {
	bad := []news.Article{{
		Title:   "API Error",
		Source:  news.ErrorSource,
		Content: "Could not retrieve news articles due to API error",
	}}
	search := &fakeNewsSearch{results: [][]news.Article{bad, testArticles(4)}}
	agent := NewNewsAgent(search, NewSynthesizer(&fakeLLM{reply: "recovered"}, false), newTestTelemetry())

	res, err := agent.Query(context.Background(), "cyber attack", QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(search.queries) != 2 {
		t.Fatalf("search called %d times, want 2", len(search.queries))
	}
	if res.Answer != "recovered" || res.Confidence != ConfidenceHigh {
		t.Errorf("result = %+v", res)
	}
}

func TestNewsAgentNoArticles(t *testing.T) {
	search := &fakeNewsSearch{results: [][]news.Article{nil, nil}}
	model := &fakeLLM{reply: "unused"}
	agent := NewNewsAgent(search, NewSynthesizer(model, false), newTestTelemetry())

	res, err := agent.Query(context.Background(), "obscure topic", QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Answer != noArticlesAnswer || res.Confidence != ConfidenceLow {
		t.Errorf("result = %+v", res)
	}
	if len(model.calls) != 0 {
		t.Error("empty batch must not call the model")
	}
}

func TestNewsAgentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	search := &fakeNewsSearch{}
	agent := NewNewsAgent(search, NewSynthesizer(&fakeLLM{reply: "x"}, false), newTestTelemetry())

	if _, err := agent.Query(ctx, "q", QueryOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNewsSourceRefsPreferDescription(t *testing.T) {
	articles := []news.Article{
		{Title: "a", Source: "Reuters", Description: "short desc", Content: "long body"},
		{Title: "b", Source: "AP", Content: "body only"},
	}
	refs := newsSourceRefs(articles)
	if refs[0].Content != "short desc" {
		t.Errorf("refs[0].Content = %q, want the description", refs[0].Content)
	}
	if refs[1].Content != "body only" {
		t.Errorf("refs[1].Content = %q", refs[1].Content)
	}
}
