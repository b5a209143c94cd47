package ingest

import "strings"

// SplitChunks splits document text into chunks of roughly maxChunkSize
// characters. Text is split into paragraphs on blank-line boundaries and
// paragraphs are greedily accumulated until adding the next one would exceed
// the limit. A single paragraph larger than the limit is emitted whole, so
// the limit is a soft target rather than a hard cap. Text with no paragraph
// boundaries comes back as a single chunk.
func SplitChunks(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 2000
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, paragraph := range paragraphs {
		if current.Len() > 0 && current.Len()+len(paragraph)+2 > maxChunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitParagraphs splits text on blank lines, dropping whitespace-only
// paragraphs.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, block := range strings.Split(normalized, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}
