// Package chunk splits document text into overlapping, sentence-respecting
// windows sized for embedding and retrieval.
package chunk

import "strings"

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 500
	// DefaultOverlap controls the overlap seeded between adjacent chunks.
	// It is specified in characters but applied as the last overlap/5 words
	// of the previous chunk, so the effective overlap is approximate.
	DefaultOverlap = 100
)

// Split cuts text into chunks of at most size characters, carrying a word
// overlap between adjacent chunks. Sentences are kept whole: a single
// sentence longer than size is emitted as its own oversized chunk rather
// than truncated. Empty input yields nil; no returned chunk is empty or
// whitespace-only.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	current := ""
	for _, sent := range sentences {
		if len(current)+len(sent)+1 > size && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			words := strings.Fields(current)
			keep := overlap / 5
			if keep > len(words) {
				keep = len(words)
			}
			current = strings.Join(words[len(words)-keep:], " ") + " " + sent
		} else {
			current += " " + sent
		}
	}
	if trimmed := strings.TrimSpace(current); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}

// splitSentences breaks text into sentences, paragraph by paragraph.
// Sentence ends are detected by literal ". " occurrences; abbreviations and
// decimals will mis-split. That heuristic is the documented behavior.
func splitSentences(text string) []string {
	var sentences []string
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for _, sent := range strings.Split(strings.ReplaceAll(para, ". ", ".\n"), "\n") {
			sent = strings.TrimSpace(sent)
			if sent != "" {
				sentences = append(sentences, sent)
			}
		}
	}
	return sentences
}
