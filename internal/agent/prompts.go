package agent

import (
	"fmt"
	"strings"

	"github.com/osintlab/sleuth/internal/news"
)

const analystSystemPrompt = `You are an advanced OSINT (Open Source Intelligence) analysis assistant. Your role is to analyze information from various sources and provide objective, factual insights based on the provided context.

Guidelines:
1. Base your answers solely on the provided context
2. Maintain objectivity and avoid speculation
3. Present information clearly and concisely
4. Highlight connections between entities and events when relevant
5. Acknowledge limitations in the data when appropriate
6. Organize information logically for easy comprehension
7. Do not reveal sensitive or confidential information
8. Cite specific documents from the context when possible

Your analysis should help intelligence professionals make informed decisions based on the available information.`

const chatSystemPrompt = `You are an advanced OSINT (Open Source Intelligence) analysis assistant in conversation mode. Your role is to engage in a helpful dialogue with the user, analyzing information from various sources and providing objective, factual insights based on the provided context.

Guidelines:
1. Base your answers solely on the provided context
2. Maintain objectivity and avoid speculation
3. Present information clearly and concisely
4. Highlight connections between entities and events when relevant
5. Acknowledge limitations in the data when appropriate
6. Respond in a conversational but professional tone
7. Remember previous messages in the conversation for context
8. Do not reveal sensitive or confidential information
9. Cite specific documents from the context when possible

Your goal is to help the user explore and understand the intelligence data through natural conversation.`

const generalSystemPrompt = `You are an advanced AI assistant with expertise in cybersecurity, intelligence analysis, and OSINT (Open Source Intelligence) techniques. Your role is to engage in a helpful dialogue with the user, answering questions to the best of your ability based on your general knowledge.

Guidelines:
1. Provide helpful, accurate, and informative responses
2. Be honest about limitations of your knowledge when appropriate
3. Present information clearly and in a conversational but professional tone
4. Emphasize cybersecurity best practices and ethical considerations`

const newsAnalystSystemPrompt = "You are a news analyst providing insights based on recent news articles."

// noEvidenceAnswer is returned for one-shot document queries with no usable evidence.
const noEvidenceAnswer = "I don't have specific information about that in my knowledge base. " +
	"Please upload relevant documents or try a different query."

// noArticlesAnswer is returned for news queries that found nothing.
const noArticlesAnswer = "I couldn't find any recent news articles related to your query. " +
	"Try refining your search or check back later as more news becomes available."

// ragPrompt wraps the query and formatted evidence into the document
// analysis prompt.
func ragPrompt(query, context string) string {
	return fmt.Sprintf(`Answer the following question based on the provided context from intelligence documents.

Context:
%s

Question:
%s

Provide a detailed and informative answer based only on the context provided. If the context doesn't contain enough information to answer the question fully, acknowledge the limitations of the available information.`, context, query)
}

// newsPrompt wraps the query and formatted articles into the news
// summarization prompt.
func newsPrompt(query, newsContext string) string {
	return fmt.Sprintf(`You are analyzing recent news articles to answer the user's query.
Use only the information from the provided news articles to answer the query.
When citing information, mention the source.

USER QUERY: %s

NEWS ARTICLES:
%s

Please provide a comprehensive answer based solely on these news articles.
If the articles don't contain sufficient information to answer the query completely, acknowledge the limitations.`, query, newsContext)
}

// combinePrompt asks the model to merge document and news perspectives.
func combinePrompt(query, documentAnswer, newsAnswer string) string {
	return fmt.Sprintf(`You are an intelligence analyst tasked with combining information from two sources to provide the most comprehensive answer.

User Query: %s

Source 1 (Document Analysis):
%s

Source 2 (Recent News Analysis):
%s

Please combine these perspectives into a comprehensive response that addresses the user's query.
Highlight where the information from documents and recent news complement or contradict each other.
Be sure to maintain factual accuracy and clearly indicate the source of information when appropriate.
Your response should be well-structured, balanced, and contain the most relevant information from both sources.`,
		query, documentAnswer, newsAnswer)
}

// formatEvidence renders evidence chunks as "[document]: content" blocks.
func formatEvidence(evidence []EvidenceItem) string {
	parts := make([]string, 0, len(evidence))
	for i, item := range evidence {
		name := item.Document
		if name == "" {
			name = fmt.Sprintf("Document %d", i+1)
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", name, item.Content))
	}
	return strings.Join(parts, "\n\n")
}

// formatArticles renders articles as TITLE/SOURCE/DATE/CONTENT/URL blocks.
// When an article body is missing or shorter than its description, the
// description stands in for the content.
func formatArticles(articles []news.Article) string {
	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		content := a.Content
		if content == news.NoContent || len(content) < len(a.Description) {
			content = a.Description
		}
		var b strings.Builder
		fmt.Fprintf(&b, "TITLE: %s\n", a.Title)
		fmt.Fprintf(&b, "SOURCE: %s\n", a.Source)
		if a.PublishedAt != "" {
			fmt.Fprintf(&b, "DATE: %s\n", a.PublishedAt)
		}
		fmt.Fprintf(&b, "CONTENT: %s\n", content)
		if a.URL != "" {
			fmt.Fprintf(&b, "URL: %s", a.URL)
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}
