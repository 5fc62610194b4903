// Package chunker splits page text into overlapping fixed-size windows
// suitable for embedding.
package chunker

import (
	"fmt"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

// Chunk is one window of a page's text. Start and End are rune offsets
// into the source text so callers can rebuild surrounding context.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Chunker produces deterministic sliding-window chunks. Identical input
// always yields identical boundaries.
type Chunker struct {
	size    int
	overlap float64
	step    int
}

// New creates a Chunker for the given window size (in runes) and overlap
// fraction. Overlap must be in [0, 1).
func New(size int, overlapFraction float64) (*Chunker, error) {
	if size <= 0 {
		return nil, &domain.ConfigurationError{
			Param:  "chunk_size",
			Reason: fmt.Sprintf("must be positive, got %d", size),
		}
	}
	if overlapFraction < 0 || overlapFraction >= 1 {
		return nil, &domain.ConfigurationError{
			Param:  "overlap_fraction",
			Reason: fmt.Sprintf("must be in [0, 1), got %g", overlapFraction),
		}
	}

	step := int(float64(size) * (1 - overlapFraction))
	if step < 1 {
		step = 1
	}

	return &Chunker{size: size, overlap: overlapFraction, step: step}, nil
}

// Chunk splits text into windows of the configured size, advancing by
// size*(1-overlap) runes. Text no longer than one window comes back as a
// single chunk; the final chunk may be shorter than the window.
func (c *Chunker) Chunk(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	if len(runes) <= c.size {
		return []Chunk{{Index: 0, Text: text, Start: 0, End: len(runes)}}
	}

	var chunks []Chunk
	for start := 0; start < len(runes); start += c.step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Context returns a window of up to margin runes on each side of the
// chunk's start offset, used as the snippet context stored with a point.
func Context(text string, start, margin int) string {
	runes := []rune(text)
	lo := start - margin
	if lo < 0 {
		lo = 0
	}
	hi := start + margin
	if hi > len(runes) {
		hi = len(runes)
	}
	return string(runes[lo:hi])
}
