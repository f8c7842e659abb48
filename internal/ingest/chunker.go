package ingest

import (
	"regexp"
	"strings"
)

// sentenceRe splits on sentence-ending punctuation followed by whitespace.
var sentenceRe = regexp.MustCompile(`(?s)(.*?[.!?])(?:\s+|$)`)

// splitSentences breaks text into sentences, keeping terminal punctuation.
// Trailing text without a terminator becomes its own sentence.
func splitSentences(text string) []string {
	var sentences []string
	consumed := 0
	for _, m := range sentenceRe.FindAllStringSubmatchIndex(text, -1) {
		s := strings.TrimSpace(text[m[2]:m[3]])
		if s != "" {
			sentences = append(sentences, s)
		}
		consumed = m[1]
	}
	if rest := strings.TrimSpace(text[consumed:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// SplitText splits text into sentence-aligned chunks of at most chunkSize
// characters, carrying a few trailing sentences over as overlap between
// consecutive chunks.
func SplitText(text string, chunkSize, chunkOverlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}

	sentences := splitSentences(text)

	var chunks []string
	var current []string
	currentSize := 0

	for _, sentence := range sentences {
		if currentSize+len(sentence) > chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			overlapStart := len(current) - chunkOverlap/10
			if overlapStart < 0 {
				overlapStart = 0
			}
			current = append([]string(nil), current[overlapStart:]...)
			currentSize = 0
			for _, s := range current {
				currentSize += len(s)
			}
		}
		current = append(current, sentence)
		currentSize += len(sentence)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
