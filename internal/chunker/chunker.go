// Package chunker splits extracted document text into bounded,
// sentence-aligned chunks for embedding.
package chunker

import (
	"regexp"
	"strings"
)

// DefaultMaxChars bounds chunk length when the caller passes no limit.
const DefaultMaxChars = 1000

// Chunk is one indexable unit of a document. Index is the chunk's
// 0-based position in the original document.
type Chunk struct {
	Text  string
	Index int
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// Split cuts text on sentence-terminal punctuation and greedily packs the
// resulting sentences into chunks of at most maxChars characters. Chunk
// boundaries always fall on sentence boundaries; a single sentence longer
// than maxChars yields one chunk exceeding the limit rather than being cut
// mid-sentence. Deterministic, no side effects. Empty input returns nil.
func Split(text string, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var chunks []Chunk
	current := ""
	flush := func() {
		trimmed := strings.TrimSpace(current)
		if trimmed != "" {
			chunks = append(chunks, Chunk{Text: trimmed, Index: len(chunks)})
		}
		current = ""
	}

	for _, raw := range sentenceEnd.Split(text, -1) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		if current != "" && len(current)+len(sentence) > maxChars {
			flush()
		}
		current += sentence + ". "
	}
	flush()
	return chunks
}
