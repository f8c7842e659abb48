package news

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/osintlab/sleuth/config"
)

// ErrorSource marks an article that stands in for a failed retrieval.
// Downstream analysis treats an article with Source == ErrorSource as a
// retrieval failure rather than content.
const ErrorSource = "Error"

// NoContent is the placeholder NewsAPI uses when an article body is missing.
const NoContent = "No content available"

// Article is one news item returned by the client.
type Article struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Content     string  `json:"content"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	PublishedAt string  `json:"published_at"`
	Relevance   float64 `json:"relevance"`
}

// IsError reports whether this article is a retrieval-failure marker.
func (a Article) IsError() bool { return a.Source == ErrorSource }

// HasContent reports whether the article carries a usable body.
func (a Article) HasContent() bool {
	return a.Content != "" && a.Content != NoContent
}

// SearchOptions tunes a news search.
type SearchOptions struct {
	DaysBack   int
	MaxResults int
	Language   string
	SortBy     string
}

// Client retrieves articles from newsapi.org.
type Client struct {
	cfg    config.NewsAPIConfig
	http   *HTTPClient
	logger *log.Logger
	now    func() time.Time
}

func NewClient(cfg config.NewsAPIConfig) *Client {
	return &Client{
		cfg:    cfg,
		http:   NewHTTPClient(cfg.Timeout, 2, 300*time.Millisecond),
		logger: log.New(log.Writer(), "[NEWS] ", log.LstdFlags),
		now:    time.Now,
	}
}

func (c *Client) endpoint() string {
	if c.cfg.Endpoint != "" {
		return strings.TrimRight(c.cfg.Endpoint, "/")
	}
	return "https://newsapi.org/v2"
}

type apiResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Search looks up recent articles matching the query. Transport and API
// failures are reported as a single ErrorSource article so callers always
// receive a result set; only context cancellation surfaces as an error.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]Article, error) {
	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = 7
	}
	maxResults := max1(opts.MaxResults, max1(c.cfg.MaxResults, 10))
	language := opts.Language
	if language == "" {
		language = c.cfg.Language
	}
	if language == "" {
		language = "en"
	}
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "relevancy"
	}

	end := c.now()
	start := end.AddDate(0, 0, -daysBack)

	url := fmt.Sprintf("%s/everything?q=%s&from=%s&to=%s&language=%s&sortBy=%s&pageSize=%d",
		c.endpoint(), escapeQuery(query),
		start.Format("2006-01-02"), end.Format("2006-01-02"),
		language, sortBy, maxResults)

	var resp apiResponse
	headers := map[string]string{"X-Api-Key": c.cfg.APIKey}
	if err := c.http.DoJSON(ctx, "GET", url, headers, nil, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Printf("news search failed: %v", err)
		return []Article{errorArticle("API Error", fmt.Sprintf("News API error: %v", err),
			"Could not retrieve news articles due to API error")}, nil
	}

	return c.convert(resp, maxResults), nil
}

// TopHeadlines fetches current headlines, optionally filtered by category.
// It shares Search's failure convention.
func (c *Client) TopHeadlines(ctx context.Context, category, country string, maxResults int) ([]Article, error) {
	if country == "" {
		country = "us"
	}
	maxResults = max1(maxResults, max1(c.cfg.MaxResults, 10))

	url := fmt.Sprintf("%s/top-headlines?country=%s&pageSize=%d", c.endpoint(), country, maxResults)
	if category != "" {
		url += "&category=" + category
	}

	var resp apiResponse
	headers := map[string]string{"X-Api-Key": c.cfg.APIKey}
	if err := c.http.DoJSON(ctx, "GET", url, headers, nil, &resp); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Printf("headlines fetch failed: %v", err)
		return []Article{errorArticle("API Error", fmt.Sprintf("News API error: %v", err),
			"Could not retrieve headlines due to API error")}, nil
	}

	return c.convert(resp, maxResults), nil
}

func (c *Client) convert(resp apiResponse, maxResults int) []Article {
	articles := make([]Article, 0, len(resp.Articles))
	for i, a := range resp.Articles {
		if i >= maxResults {
			break
		}
		art := Article{
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
			Relevance:   1.0,
		}
		if art.Title == "" {
			art.Title = "No title"
		}
		if art.Description == "" {
			art.Description = "No description"
		}
		if art.Content == "" {
			art.Content = NoContent
		}
		if art.Source == "" {
			art.Source = "Unknown source"
		}
		articles = append(articles, art)
	}
	return articles
}

func errorArticle(title, description, content string) Article {
	return Article{
		Title:       title,
		Description: description,
		Content:     content,
		Source:      ErrorSource,
		Relevance:   0.0,
	}
}

func escapeQuery(q string) string { return strings.ReplaceAll(q, " ", "+") }

func max1(a, def int) int {
	if a > 0 {
		return a
	}
	return def
}
