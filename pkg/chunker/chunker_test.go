package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_LineStrategy(t *testing.T) {
	c := New()
	text := "This is the first meaningful line of text.\nshort\n\nAnother line long enough to keep around here.\n  \npg 4\n"

	chunks := c.Chunk(text, DefaultOptions())

	require.Len(t, chunks, 2)
	assert.Equal(t, "This is the first meaningful line of text.", chunks[0].Content)
	assert.Equal(t, "Another line long enough to keep around here.", chunks[1].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestChunk_Deterministic(t *testing.T) {
	c := New()
	text := strings.Repeat("A reasonably long paragraph about nothing in particular.\n", 10)

	first := c.Chunk(text, DefaultOptions())
	second := c.Chunk(text, DefaultOptions())

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestChunk_MinLengthThreshold(t *testing.T) {
	c := New()
	text := "Chapter 1\n12\n- - -\nThe actual body text of the chapter goes here and is long enough."

	chunks := c.Chunk(text, ChunkOptions{MinLength: 20, Strategy: "line"})

	require.Len(t, chunks, 1)
	for _, ch := range chunks {
		assert.GreaterOrEqual(t, len(strings.TrimSpace(ch.Content)), 20)
	}
}

func TestChunk_ParagraphStrategy(t *testing.T) {
	c := New()
	text := "First paragraph line one.\nFirst paragraph line two.\n\n\nSecond paragraph, all by itself here.\n"

	chunks := c.Chunk(text, ChunkOptions{MinLength: 20, Strategy: "paragraph"})

	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph line one.\nFirst paragraph line two.", chunks[0].Content)
	assert.Equal(t, "Second paragraph, all by itself here.", chunks[1].Content)
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New()
	assert.Empty(t, c.Chunk("", DefaultOptions()))
	assert.Empty(t, c.Chunk("\n\n\n", DefaultOptions()))
}

func TestChunk_IndicesAreContiguous(t *testing.T) {
	c := New()
	text := "A first line that clears the threshold easily.\nx\nA second line that clears the threshold easily.\ny\nA third line that clears the threshold easily."

	chunks := c.Chunk(text, DefaultOptions())

	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}
