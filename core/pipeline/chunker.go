package pipeline

import (
	"fmt"
	"strings"
)

// TokenChunker creates a chunker that packs text into segments of at most
// maxTokens tokens. It prefers paragraph boundaries, falls back to sentence
// boundaries for oversized paragraphs and to word boundaries for oversized
// sentences. Empty or whitespace-only text yields no segments.
func TokenChunker(counter TokenCounterFunc, maxTokens int) ChunkFunc {
	return func(text string) ([]string, error) {
		if counter == nil {
			return nil, fmt.Errorf("token counter must not be nil")
		}
		if maxTokens <= 0 {
			return nil, fmt.Errorf("max tokens per chunk must be positive")
		}

		if strings.TrimSpace(text) == "" {
			return []string{}, nil
		}

		var paragraphs []string
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para != "" {
				paragraphs = append(paragraphs, para)
			}
		}

		var chunks []string
		var current []string
		currentTokens := 0

		flush := func() {
			if len(current) > 0 {
				chunks = append(chunks, strings.Join(current, "\n\n"))
				current = nil
				currentTokens = 0
			}
		}

		for _, para := range paragraphs {
			tokens, err := counter(para)
			if err != nil {
				return nil, fmt.Errorf("failed to count tokens: %w", err)
			}

			if tokens > maxTokens {
				flush()
				split, err := splitOversizedParagraph(para, counter, maxTokens)
				if err != nil {
					return nil, err
				}
				chunks = append(chunks, split...)
				continue
			}

			if currentTokens+tokens > maxTokens {
				flush()
			}
			current = append(current, para)
			currentTokens += tokens
		}
		flush()

		return chunks, nil
	}
}

// splitOversizedParagraph splits a paragraph that exceeds the token budget
// into sentence groups, each within the budget.
func splitOversizedParagraph(para string, counter TokenCounterFunc, maxTokens int) ([]string, error) {
	marked := strings.ReplaceAll(para, "! ", "!|")
	marked = strings.ReplaceAll(marked, "? ", "?|")
	marked = strings.ReplaceAll(marked, ". ", ".|")

	var sentences []string
	for _, s := range strings.Split(marked, "|") {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
	}

	for _, sentence := range sentences {
		tokens, err := counter(sentence)
		if err != nil {
			return nil, fmt.Errorf("failed to count tokens: %w", err)
		}

		if tokens > maxTokens {
			flush()
			split, err := splitOversizedSentence(sentence, counter, maxTokens)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, split...)
			continue
		}

		if currentTokens+tokens > maxTokens {
			flush()
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return chunks, nil
}

// splitOversizedSentence splits a sentence that exceeds the token budget into
// word groups. A single word over the budget is emitted as its own segment,
// there is no smaller boundary to split on.
func splitOversizedSentence(sentence string, counter TokenCounterFunc, maxTokens int) ([]string, error) {
	words := strings.Fields(sentence)
	if len(words) <= 1 {
		return []string{sentence}, nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
	}

	for _, word := range words {
		tokens, err := counter(word)
		if err != nil {
			return nil, fmt.Errorf("failed to count tokens: %w", err)
		}

		if currentTokens+tokens > maxTokens {
			flush()
		}
		current = append(current, word)
		currentTokens += tokens
	}
	flush()

	return chunks, nil
}

// RecoverOffsets maps each segment back to its offset in the original text.
// Offsets are byte positions, not rune indices; they only differ for text
// containing multi-byte characters. A moving cursor keeps duplicate segments
// distinct. When a segment cannot be located verbatim (its internal
// whitespace was rewritten during splitting) the current cursor position is
// used as a best-effort approximation.
func RecoverOffsets(text string, segments []string) []int {
	offsets := make([]int, len(segments))
	cursor := 0

	for i, segment := range segments {
		idx := strings.Index(text[cursor:], segment)
		if idx >= 0 {
			offsets[i] = cursor + idx
			cursor = cursor + idx + len(segment)
		} else {
			offsets[i] = cursor
			cursor += len(segment)
		}
		if cursor > len(text) {
			cursor = len(text)
		}
	}

	return offsets
}
