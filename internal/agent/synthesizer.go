package agent

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/osintlab/sleuth/internal/llm"
	"github.com/osintlab/sleuth/internal/news"
)

// historyWindow bounds how many prior chat turns are forwarded to the model.
const historyWindow = 5

// Synthesizer turns retrieved evidence or articles into answers.
type Synthesizer struct {
	llm        llm.Provider
	allowLocal bool
	logger     *log.Logger
}

// NewSynthesizer creates a synthesizer. Generation failures never abort a
// query: the answer text carries an error marker with low confidence, and
// when allowLocal is set document answers degrade to local keyword
// extraction instead. Only context cancellation surfaces as an error.
func NewSynthesizer(provider llm.Provider, allowLocal bool) *Synthesizer {
	return &Synthesizer{
		llm:        provider,
		allowLocal: allowLocal,
		logger:     log.New(log.Writer(), "[SYNTH] ", log.LstdFlags),
	}
}

// GenerateAnswer produces a document-grounded answer for the query.
func (s *Synthesizer) GenerateAnswer(ctx context.Context, query string, evidence []EvidenceItem, analysis Analysis, opts QueryOptions) (Answer, error) {
	evidenceContext := formatEvidence(evidence)

	var messages []llm.Message
	if len(opts.History) > 0 {
		messages = append(messages,
			llm.Message{Role: "system", Content: chatSystemPrompt},
			llm.Message{Role: "system", Content: "Here is relevant information from the intelligence database to help answer the user's questions:\n\n" + evidenceContext},
		)
		messages = append(messages, lastTurns(opts.History, historyWindow)...)
		messages = append(messages, llm.Message{Role: "user", Content: query})
	} else {
		messages = []llm.Message{
			{Role: "system", Content: analystSystemPrompt},
			{Role: "user", Content: ragPrompt(query, evidenceContext)},
		}
	}

	text, err := s.llm.Complete(ctx, messages, llm.Options{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens})
	if err != nil {
		if ctx.Err() != nil {
			return Answer{}, ctx.Err()
		}
		answerText := generationError(err)
		if s.allowLocal {
			s.logger.Printf("model unavailable (%v), extracting answer locally", err)
			answerText = ExtractiveAnswer(query, evidence)
		} else {
			s.logger.Printf("model unavailable: %v", err)
		}
		return Answer{
			Text:               answerText,
			HasContext:         len(evidence) > 0,
			Sources:            evidenceSources(evidence),
			Confidence:         ConfidenceLow,
			MissingInformation: analysis.MissingTerms,
		}, nil
	}

	confidence := ConfidenceMedium
	if analysis.HasRelevantInfo {
		confidence = ConfidenceHigh
	}
	return Answer{
		Text:               text,
		HasContext:         len(evidence) > 0,
		Sources:            evidenceSources(evidence),
		Confidence:         confidence,
		MissingInformation: analysis.MissingTerms,
	}, nil
}

// GenerateNewsSummary produces an answer grounded in the supplied articles.
func (s *Synthesizer) GenerateNewsSummary(ctx context.Context, query string, articles []news.Article, analysis NewsAnalysis, opts QueryOptions) (Answer, error) {
	prompt := newsPrompt(query, formatArticles(articles))

	messages := []llm.Message{{Role: "system", Content: newsAnalystSystemPrompt}}
	messages = append(messages, lastTurns(opts.History, historyWindow)...)
	messages = append(messages, llm.Message{Role: "user", Content: prompt})

	text, err := s.llm.Complete(ctx, messages, llm.Options{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens})
	if err != nil {
		if ctx.Err() != nil {
			return Answer{}, ctx.Err()
		}
		s.logger.Printf("model unavailable: %v", err)
		return Answer{
			Text:         generationError(err),
			HasContext:   len(articles) > 0,
			Sources:      articleSources(articles),
			Confidence:   ConfidenceLow,
			ArticleCount: len(articles),
		}, nil
	}

	confidence := ConfidenceMedium
	if analysis.HasRelevantInfo && analysis.ArticlesWithContent > minArticlesWithContent {
		confidence = ConfidenceHigh
	}

	return Answer{
		Text:         text,
		HasContext:   len(articles) > 0,
		Sources:      articleSources(articles),
		Confidence:   confidence,
		ArticleCount: len(articles),
	}, nil
}

// GenerateFallback answers a document query that retrieved nothing. In chat
// mode the model answers from general knowledge; one-shot queries get a
// fixed guidance message.
func (s *Synthesizer) GenerateFallback(ctx context.Context, query string, opts QueryOptions) (Answer, error) {
	text := noEvidenceAnswer
	if len(opts.History) > 0 {
		messages := []llm.Message{{Role: "system", Content: generalSystemPrompt}}
		messages = append(messages, lastTurns(opts.History, historyWindow)...)
		messages = append(messages, llm.Message{Role: "user", Content: query})

		reply, err := s.llm.Complete(ctx, messages, llm.Options{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens})
		if err != nil {
			if ctx.Err() != nil {
				return Answer{}, ctx.Err()
			}
			s.logger.Printf("model unavailable: %v", err)
			reply = generationError(err)
		}
		text = reply
	}

	return Answer{
		Text:               text,
		Sources:            []string{},
		Confidence:         ConfidenceLow,
		MissingInformation: []string{"No relevant documents found"},
	}, nil
}

// CombineAnswers merges the document and news answers into one narrative.
func (s *Synthesizer) CombineAnswers(ctx context.Context, query, documentAnswer, newsAnswer string, opts QueryOptions) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: analystSystemPrompt},
		{Role: "user", Content: combinePrompt(query, documentAnswer, newsAnswer)},
	}
	text, err := s.llm.Complete(ctx, messages, llm.Options{Temperature: opts.Temperature, MaxTokens: opts.MaxTokens})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Printf("model unavailable: %v", err)
		return generationError(err), nil
	}
	return text, nil
}

// generationError wraps a failed model call in the answer-level marker.
func generationError(err error) string {
	return "Error generating response: " + err.Error()
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]`)

// ExtractiveAnswer builds an answer without a model by pulling sentences
// that mention the query's keywords. Used when local degradation is allowed
// and the model is unreachable.
func ExtractiveAnswer(query string, evidence []EvidenceItem) string {
	if len(evidence) == 0 {
		return "No relevant information found in the documents."
	}

	keywords := queryKeywords(query)
	if len(keywords) == 0 {
		return "Found relevant information in the documents. Please check the sources below."
	}

	seen := map[string]bool{}
	var matched []string
	for _, item := range evidence {
		for _, sentence := range sentenceSplitRe.Split(item.Content, -1) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" || seen[sentence] {
				continue
			}
			lower := strings.ToLower(sentence)
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					seen[sentence] = true
					matched = append(matched, sentence)
					break
				}
			}
		}
	}

	if len(matched) > 0 {
		if len(matched) > 3 {
			matched = matched[:3]
		}
		return strings.Join(matched, " ")
	}
	return evidence[0].Content
}

func lastTurns(history []llm.Message, n int) []llm.Message {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return history
}

func evidenceSources(evidence []EvidenceItem) []string {
	sources := make([]string, 0, len(evidence))
	for _, item := range evidence {
		name := item.Document
		if name == "" {
			name = "Unknown"
		}
		sources = append(sources, name)
	}
	return sources
}

// articleSources lists the distinct non-error outlets, in first-seen order.
func articleSources(articles []news.Article) []string {
	seen := map[string]bool{}
	var sources []string
	for _, a := range articles {
		if a.IsError() || seen[a.Source] {
			continue
		}
		seen[a.Source] = true
		sources = append(sources, a.Source)
	}
	return sources
}
