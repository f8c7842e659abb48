package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/osintlab/sleuth/internal/agent/telemetry"
)

// MultiAgent runs the document and news loops in parallel and arbitrates
// between their answers.
type MultiAgent struct {
	documents *DocumentAgent
	news      *NewsAgent
	synth     *Synthesizer
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewMultiAgent(documents *DocumentAgent, news *NewsAgent, synth *Synthesizer, tel *telemetry.Telemetry) *MultiAgent {
	return &MultiAgent{
		documents: documents,
		news:      news,
		synth:     synth,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[MULTI-AGENT] ", log.LstdFlags),
	}
}

// Query fans the question out to the enabled loops, then picks or combines
// their answers by confidence: both medium-or-better answers are merged by
// the model; otherwise the strictly more confident one wins, and ties go to
// the news answer. SkipDocuments and SkipNews restrict the fan-out to a
// single loop.
func (m *MultiAgent) Query(ctx context.Context, query string, opts QueryOptions) (CombinedResult, error) {
	opts = opts.withDefaults()
	if opts.SkipDocuments && opts.SkipNews {
		return CombinedResult{}, fmt.Errorf("at least one source must be enabled")
	}
	// the news loop retrieves as many articles as the document loop
	// retrieves chunks
	opts.MaxResults = opts.TopK
	started := time.Now()

	var (
		wg      sync.WaitGroup
		docRes  DocumentResult
		docErr  error
		newsRes NewsResult
		newsErr error
	)
	if !opts.SkipDocuments {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docRes, docErr = m.documents.Query(ctx, query, opts)
		}()
	}
	if !opts.SkipNews {
		wg.Add(1)
		go func() {
			defer wg.Done()
			newsRes, newsErr = m.news.Query(ctx, query, opts)
		}()
	}
	wg.Wait()

	if docErr != nil {
		m.telemetry.RecordQuery("combined", time.Since(started), false)
		return CombinedResult{}, docErr
	}
	if newsErr != nil {
		m.telemetry.RecordQuery("combined", time.Since(started), false)
		return CombinedResult{}, newsErr
	}

	sources := make([]SourceRef, 0, len(docRes.Sources)+len(newsRes.Sources))
	for _, item := range docRes.Sources {
		title := item.Metadata["title"]
		if title == "" {
			title = "Document"
		}
		sources = append(sources, SourceRef{
			Type:      "document",
			Title:     title,
			Content:   item.Content,
			Document:  item.Document,
			Relevance: item.Relevance,
		})
	}
	for _, ref := range newsRes.Sources {
		ref.Type = "news"
		sources = append(sources, ref)
	}

	docScore := docRes.Confidence.Score()
	newsScore := newsRes.Confidence.Score()

	result := CombinedResult{
		Sources:              sources,
		Query:                query,
		DocumentRefinedQuery: docRes.RefinedQuery,
		NewsRefinedQuery:     newsRes.RefinedQuery,
	}

	switch {
	case opts.SkipNews:
		result.Answer = docRes.Answer
		result.Confidence = docRes.Confidence
		result.PrimarySource = "documents"
	case opts.SkipDocuments:
		result.Answer = newsRes.Answer
		result.Confidence = newsRes.Confidence
		result.PrimarySource = "news"
	case docScore >= 2 && newsScore >= 2:
		combined, err := m.synth.CombineAnswers(ctx, query, docRes.Answer, newsRes.Answer, opts)
		if err != nil {
			m.telemetry.RecordQuery("combined", time.Since(started), false)
			return CombinedResult{}, err
		}
		result.Answer = combined
		result.Confidence = ConfidenceHigh
		result.PrimarySource = "combined"
	case docScore > newsScore:
		result.Answer = docRes.Answer
		result.Confidence = docRes.Confidence
		result.PrimarySource = "documents"
	default:
		// covers a strictly higher news score and the equal-low tie
		result.Answer = newsRes.Answer
		result.Confidence = newsRes.Confidence
		result.PrimarySource = "news"
	}

	m.logger.Printf("arbitration: documents=%s news=%s -> %s", docRes.Confidence, newsRes.Confidence, result.PrimarySource)
	m.telemetry.RecordQuery("combined", time.Since(started), true)
	return result, nil
}
