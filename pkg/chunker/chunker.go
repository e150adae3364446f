package chunker

import (
	"strings"
)

type Chunker interface {
	Chunk(text string, opts ChunkOptions) []TextChunk
}

type ChunkOptions struct {
	MinLength int    // fragments shorter than this after trimming are dropped
	Strategy  string // "line" or "paragraph"
}

type TextChunk struct {
	Content string
	Index   int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		MinLength: 20,
		Strategy:  "line",
	}
}

type defaultChunker struct{}

func New() Chunker {
	return &defaultChunker{}
}

// Chunk splits text on natural boundaries into an ordered, non-overlapping
// sequence. Pure function of its input: the same text always produces the
// same chunks, which keeps re-ingestion idempotent.
func (c *defaultChunker) Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.MinLength <= 0 {
		opts.MinLength = 20
	}

	var parts []string
	switch opts.Strategy {
	case "paragraph":
		parts = splitParagraphs(text)
	default:
		parts = strings.Split(text, "\n")
	}

	var chunks []TextChunk
	idx := 0
	for _, p := range parts {
		p = strings.TrimSpace(p)
		// Headers, page numbers and other near-empty fragments are noise
		// that would pollute the embedding space.
		if len(p) < opts.MinLength {
			continue
		}
		chunks = append(chunks, TextChunk{Content: p, Index: idx})
		idx++
	}
	return chunks
}

// splitParagraphs splits on blank-line boundaries, treating runs of
// whitespace-only lines as a single separator.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var parts []string
	var current strings.Builder
	for _, line := range strings.Split(normalized, "\n") {
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}
