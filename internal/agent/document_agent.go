package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/osintlab/sleuth/internal/agent/telemetry"
)

// maxRefinements bounds the document loop: at most two refined retrievals
// after the initial one.
const maxRefinements = 2

// DocumentAgent runs the document retrieval loop: retrieve, analyze, and
// either refine the query or synthesize an answer.
type DocumentAgent struct {
	search    DocumentSearcher
	synth     *Synthesizer
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewDocumentAgent(search DocumentSearcher, synth *Synthesizer, tel *telemetry.Telemetry) *DocumentAgent {
	return &DocumentAgent{
		search:    search,
		synth:     synth,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[DOC-AGENT] ", log.LstdFlags),
	}
}

// Query answers from the evidence store, refining the search query up to
// two times when retrieval quality is poor. The final answer is always
// generated against the original query.
func (a *DocumentAgent) Query(ctx context.Context, query string, opts QueryOptions) (DocumentResult, error) {
	opts = opts.withDefaults()
	started := time.Now()

	state := WorkingState{Query: query, OriginalQuery: query}
	for {
		if err := ctx.Err(); err != nil {
			a.telemetry.RecordQuery("documents", time.Since(started), false)
			return DocumentResult{}, err
		}

		retrieveStart := time.Now()
		evidence, err := a.search.Search(ctx, state.Query, opts.TopK)
		a.telemetry.RecordSourceAccess("evidence_store", time.Since(retrieveStart), err == nil, len(evidence))
		if err != nil {
			a.telemetry.RecordQuery("documents", time.Since(started), false)
			return DocumentResult{}, fmt.Errorf("retrieving evidence: %w", err)
		}

		state.Evidence = evidence
		state.Analysis = AnalyzeEvidence(state.Query, evidence)

		if state.Analysis.NeedsRefinement && state.RefinementCount < maxRefinements {
			refined := RefineQuery(state.OriginalQuery, state.Analysis, state.Evidence)
			a.logger.Printf("refining query (%d/%d): %q -> %q", state.RefinementCount+1, maxRefinements, state.Query, refined)
			state.Query = refined
			state.RefinedQuery = refined
			state.RefinementCount++
			continue
		}
		break
	}

	var answer Answer
	var err error
	if len(state.Evidence) > 0 {
		answer, err = a.synth.GenerateAnswer(ctx, state.OriginalQuery, state.Evidence, state.Analysis, opts)
	} else {
		answer, err = a.synth.GenerateFallback(ctx, state.OriginalQuery, opts)
	}
	if err != nil {
		a.telemetry.RecordQuery("documents", time.Since(started), false)
		return DocumentResult{}, err
	}

	a.telemetry.RecordQuery("documents", time.Since(started), true)
	return DocumentResult{
		Answer:       answer.Text,
		Sources:      state.Evidence,
		Query:        query,
		RefinedQuery: state.RefinedQuery,
		Confidence:   answer.Confidence,
	}, nil
}
