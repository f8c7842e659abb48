package ingest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/osintlab/sleuth/internal/evidence"
	"github.com/osintlab/sleuth/internal/llm"
)

// embedBatchSize bounds how many chunks go into one embedding request.
const embedBatchSize = 64

// Ingestor chunks documents, embeds the chunks and writes them to the
// evidence store.
type Ingestor struct {
	store        *evidence.Store
	embedder     llm.Provider
	chunkSize    int
	chunkOverlap int
	embeddingDim int
	httpClient   *http.Client
	logger       *log.Logger
}

// NewIngestor builds an ingestor. embeddingDim, when positive, is enforced
// against every vector the embedder returns so a misconfigured model fails
// before anything reaches the store.
func NewIngestor(store *evidence.Store, embedder llm.Provider, chunkSize, chunkOverlap, embeddingDim int) *Ingestor {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Ingestor{
		store:        store,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		embeddingDim: embeddingDim,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       log.New(log.Writer(), "[INGEST] ", log.LstdFlags),
	}
}

// IngestText chunks, embeds and stores one document. The name identifies
// the document in search results. Returns the number of stored chunks.
func (g *Ingestor) IngestText(ctx context.Context, name, text string, metadata map[string]string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("document name required")
	}

	parts := SplitText(text, g.chunkSize, g.chunkOverlap)
	if len(parts) == 0 {
		return 0, fmt.Errorf("document %q contains no text", name)
	}

	stored := 0
	for start := 0; start < len(parts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(parts) {
			end = len(parts)
		}
		batch := parts[start:end]

		vectors, err := g.embedder.Embed(ctx, batch)
		if err != nil {
			return stored, fmt.Errorf("embedding chunks of %q: %w", name, err)
		}

		chunks := make([]evidence.Chunk, len(batch))
		for i, content := range batch {
			if g.embeddingDim > 0 && len(vectors[i]) != g.embeddingDim {
				return stored, fmt.Errorf("embedding for chunk %d of %q has dimension %d, want %d",
					start+i, name, len(vectors[i]), g.embeddingDim)
			}
			meta := map[string]string{"filename": name}
			for k, v := range metadata {
				meta[k] = v
			}
			meta["chunk"] = strconv.Itoa(start + i)
			chunks[i] = evidence.Chunk{
				Document:   name,
				ChunkIndex: start + i,
				Content:    content,
				Metadata:   meta,
				Vector:     vectors[i],
			}
		}
		if err := g.store.AddChunks(ctx, chunks); err != nil {
			return stored, fmt.Errorf("storing chunks of %q: %w", name, err)
		}
		stored += len(chunks)
	}

	g.logger.Printf("ingested %q: %d chunks", name, stored)
	return stored, nil
}

// IngestURL fetches a page, extracts its readable article text and ingests
// it under the page title (or the URL when no title is found). Returns the
// document name and stored chunk count.
func (g *Ingestor) IngestURL(ctx context.Context, link string) (string, int, error) {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Scheme == "" {
		return "", 0, fmt.Errorf("invalid url %q", link)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return "", 0, fmt.Errorf("request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("fetching %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("fetching %s: status %d", link, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", 0, fmt.Errorf("extracting article from %s: %w", link, err)
	}

	name := strings.TrimSpace(article.Title)
	if name == "" {
		name = link
	}

	n, err := g.IngestText(ctx, name, article.TextContent, map[string]string{
		"url":   link,
		"title": strings.TrimSpace(article.Title),
	})
	return name, n, err
}
