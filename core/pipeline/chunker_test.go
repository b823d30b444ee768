package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordCounter counts whitespace-separated words, a stand-in for a model
// tokenizer in tests.
func wordCounter(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func TestTokenChunker(t *testing.T) {
	t.Run("Single paragraph under budget", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 10)
		text := "A short paragraph with a few words."

		chunks, err := chunker(text)

		require.NoError(t, err)
		require.Equal(t, 1, len(chunks))
		assert.Equal(t, text, chunks[0])
	})

	t.Run("Paragraphs pack greedily under budget", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 10)
		text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."

		chunks, err := chunker(text)

		require.NoError(t, err)
		require.Equal(t, 1, len(chunks), "Expected nine words to fit in one ten token chunk")
		assert.Contains(t, chunks[0], "First paragraph")
		assert.Contains(t, chunks[0], "Third paragraph")
	})

	t.Run("Budget forces a paragraph boundary", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 4)
		text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."

		chunks, err := chunker(text)

		require.NoError(t, err)
		assert.Equal(t, 3, len(chunks))
	})

	t.Run("Oversized paragraph splits on sentences", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 5)
		text := "This is sentence one. This is sentence two. This is sentence three."

		chunks, err := chunker(text)

		require.NoError(t, err)
		assert.Greater(t, len(chunks), 1, "Expected the paragraph to be split")
		for _, chunk := range chunks {
			count, err := wordCounter(chunk)
			require.NoError(t, err)
			assert.LessOrEqual(t, count, 5, "Expected every chunk to stay within the token budget")
		}
	})

	t.Run("Oversized sentence splits on words", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 3)
		text := "one two three four five six seven eight"

		chunks, err := chunker(text)

		require.NoError(t, err)
		assert.Equal(t, 3, len(chunks))
		for _, chunk := range chunks {
			count, err := wordCounter(chunk)
			require.NoError(t, err)
			assert.LessOrEqual(t, count, 3)
		}
	})

	t.Run("Content is preserved in order", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 4)
		text := "alpha beta gamma delta epsilon zeta eta theta iota kappa"

		chunks, err := chunker(text)

		require.NoError(t, err)
		joined := strings.Join(chunks, " ")
		assert.Equal(t, text, joined, "Expected word order and content to survive chunking")
	})

	t.Run("Empty text", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 10)

		chunks, err := chunker("")

		require.NoError(t, err)
		assert.Equal(t, 0, len(chunks))
	})

	t.Run("Text with only whitespace", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 10)

		chunks, err := chunker("   \n\t\n\n  ")

		require.NoError(t, err)
		assert.Equal(t, 0, len(chunks))
	})

	t.Run("Error with zero max tokens", func(t *testing.T) {
		chunker := TokenChunker(wordCounter, 0)

		_, err := chunker("Some text.")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must be positive")
	})

	t.Run("Error with nil counter", func(t *testing.T) {
		chunker := TokenChunker(nil, 10)

		_, err := chunker("Some text.")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "must not be nil")
	})
}

func TestRecoverOffsets(t *testing.T) {
	t.Run("Exact recovery on paragraph boundaries", func(t *testing.T) {
		text := "First paragraph.\n\nSecond paragraph.\n\nThird paragraph."
		segments := []string{"First paragraph.", "Second paragraph.", "Third paragraph."}

		offsets := RecoverOffsets(text, segments)

		require.Equal(t, 3, len(offsets))
		for i, segment := range segments {
			assert.Equal(t, segment, text[offsets[i]:offsets[i]+len(segment)], "Expected offset %d to point at its segment", i)
		}
	})

	t.Run("Duplicate segments get distinct offsets", func(t *testing.T) {
		text := "repeat\n\nrepeat\n\nrepeat"
		segments := []string{"repeat", "repeat", "repeat"}

		offsets := RecoverOffsets(text, segments)

		require.Equal(t, 3, len(offsets))
		assert.Equal(t, 0, offsets[0])
		assert.Equal(t, 8, offsets[1])
		assert.Equal(t, 16, offsets[2])
	})

	t.Run("Rewritten whitespace falls back to the cursor", func(t *testing.T) {
		text := "word1\nword2 word3"
		// Splitting rewrote the newline into a space
		segments := []string{"word1 word2", "word3"}

		offsets := RecoverOffsets(text, segments)

		require.Equal(t, 2, len(offsets))
		assert.GreaterOrEqual(t, offsets[0], 0)
		assert.GreaterOrEqual(t, offsets[1], offsets[0], "Expected offsets to be non-decreasing")
		assert.LessOrEqual(t, offsets[1], len(text))
	})

	t.Run("Offsets are byte positions for multi-byte text", func(t *testing.T) {
		text := "Héllo wörld.\n\nSecond paragraph."
		segments := []string{"Héllo wörld.", "Second paragraph."}

		offsets := RecoverOffsets(text, segments)

		require.Equal(t, 2, len(offsets))
		assert.Equal(t, 0, offsets[0])
		// "Héllo wörld." is 12 runes but 14 bytes, plus the blank line
		assert.Equal(t, 16, offsets[1])
		assert.Equal(t, segments[1], text[offsets[1]:offsets[1]+len(segments[1])])
	})

	t.Run("Empty segments", func(t *testing.T) {
		offsets := RecoverOffsets("some text", []string{})

		assert.Equal(t, 0, len(offsets))
	})

	t.Run("Offsets never exceed text length", func(t *testing.T) {
		text := "tiny"
		segments := []string{"tiny", "not in the text at all"}

		offsets := RecoverOffsets(text, segments)

		require.Equal(t, 2, len(offsets))
		for _, offset := range offsets {
			assert.GreaterOrEqual(t, offset, 0)
			assert.LessOrEqual(t, offset, len(text))
		}
	})
}
