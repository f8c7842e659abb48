package agent

import (
	"context"
	"fmt"

	"github.com/osintlab/sleuth/internal/evidence"
	"github.com/osintlab/sleuth/internal/llm"
)

// EvidenceSearcher adapts the vector store into a DocumentSearcher by
// embedding the query and running a nearest-neighbour search. Hits below
// minRelevance are dropped before analysis sees them.
type EvidenceSearcher struct {
	store        *evidence.Store
	embedder     llm.Provider
	minRelevance float64
}

func NewEvidenceSearcher(store *evidence.Store, embedder llm.Provider, minRelevance float64) *EvidenceSearcher {
	return &EvidenceSearcher{store: store, embedder: embedder, minRelevance: minRelevance}
}

func (s *EvidenceSearcher) Search(ctx context.Context, query string, topK int) ([]EvidenceItem, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	hits, err := s.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("searching evidence: %w", err)
	}

	items := make([]EvidenceItem, 0, len(hits))
	for _, h := range hits {
		if s.minRelevance > 0 && h.Relevance < s.minRelevance {
			continue
		}
		items = append(items, EvidenceItem{
			Content:   h.Content,
			Document:  h.Document,
			Relevance: h.Relevance,
			Metadata:  h.Metadata,
		})
	}
	return items, nil
}
