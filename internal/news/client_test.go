package news

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/osintlab/sleuth/config"
)

func testClient(endpoint string) *Client {
	return &Client{
		cfg:    config.NewsAPIConfig{APIKey: "test-key", Endpoint: endpoint},
		http:   NewHTTPClient(time.Second, 0, time.Millisecond),
		logger: log.New(log.Writer(), "[NEWS] ", log.LstdFlags),
		now:    func() time.Time { return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) },
	}
}

const sampleResponse = `{
  "status": "ok",
  "articles": [
    {"title": "First story", "description": "desc", "content": "body",
     "url": "https://example.com/1", "publishedAt": "2025-06-09T10:00:00Z",
     "source": {"name": "Reuters"}},
    {"title": "", "description": "", "content": "",
     "url": "https://example.com/2", "publishedAt": "",
     "source": {"name": ""}}
  ]
}`

func TestSearch(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	articles, err := c.Search(context.Background(), "cyber attack", SearchOptions{DaysBack: 3, MaxResults: 10})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/everything" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	for _, part := range []string{"q=cyber+attack", "from=2025-06-07", "to=2025-06-10", "language=en", "sortBy=relevancy", "pageSize=10"} {
		if !containsParam(gotQuery, part) {
			t.Errorf("query %q missing %q", gotQuery, part)
		}
	}

	if len(articles) != 2 {
		t.Fatalf("got %d articles", len(articles))
	}
	if articles[0].Title != "First story" || articles[0].Source != "Reuters" || articles[0].Relevance != 1.0 {
		t.Errorf("articles[0] = %+v", articles[0])
	}
	second := articles[1]
	if second.Title != "No title" || second.Description != "No description" ||
		second.Content != NoContent || second.Source != "Unknown source" {
		t.Errorf("defaults not applied: %+v", second)
	}
}

func containsParam(query, part string) bool {
	for _, p := range splitAmp(query) {
		if p == part {
			return true
		}
	}
	return false
}

func splitAmp(s string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '&' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return parts
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	articles, err := testClient(srv.URL).Search(context.Background(), "q", SearchOptions{MaxResults: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d articles, want 1", len(articles))
	}
}

func TestSearchFailureReturnsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	articles, err := testClient(srv.URL).Search(context.Background(), "q", SearchOptions{})
	if err != nil {
		t.Fatalf("transport failures must not surface as errors, got %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want the single sentinel", len(articles))
	}
	a := articles[0]
	if !a.IsError() || a.Title != "API Error" {
		t.Errorf("sentinel = %+v", a)
	}
	if a.Content != "Could not retrieve news articles due to API error" {
		t.Errorf("sentinel content = %q", a.Content)
	}
}

func TestSearchCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testClient(srv.URL).Search(ctx, "q", SearchOptions{}); err == nil {
		t.Fatal("cancellation must surface as an error, not a sentinel")
	}
}

func TestTopHeadlines(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	articles, err := testClient(srv.URL).TopHeadlines(context.Background(), "technology", "", 5)
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/top-headlines" {
		t.Errorf("path = %q", gotPath)
	}
	for _, part := range []string{"country=us", "pageSize=5", "category=technology"} {
		if !containsParam(gotQuery, part) {
			t.Errorf("query %q missing %q", gotQuery, part)
		}
	}
	if len(articles) != 2 {
		t.Errorf("got %d articles", len(articles))
	}
}

func TestArticlePredicates(t *testing.T) {
	tests := []struct {
		name       string
		article    Article
		isError    bool
		hasContent bool
	}{
		{"normal", Article{Source: "Reuters", Content: "body"}, false, true},
		{"sentinel", Article{Source: ErrorSource, Content: "explanation"}, true, true},
		{"placeholder body", Article{Source: "AP", Content: NoContent}, false, false},
		{"empty body", Article{Source: "AP"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.article.IsError(); got != tt.isError {
				t.Errorf("IsError = %v, want %v", got, tt.isError)
			}
			if got := tt.article.HasContent(); got != tt.hasContent {
				t.Errorf("HasContent = %v, want %v", got, tt.hasContent)
			}
		})
	}
}
