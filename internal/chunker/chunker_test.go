package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

func TestNewRejectsBadConfig(t *testing.T) {
	testCases := []struct {
		name    string
		size    int
		overlap float64
	}{
		{name: "zero size", size: 0, overlap: 0.2},
		{name: "negative size", size: -10, overlap: 0.2},
		{name: "overlap of one", size: 512, overlap: 1.0},
		{name: "overlap above one", size: 512, overlap: 1.5},
		{name: "negative overlap", size: 512, overlap: -0.1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.size, tc.overlap)
			require.Error(t, err)
			var cfgErr *domain.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	c, err := New(512, 0.2)
	require.NoError(t, err)

	text := "Introduction to Sorting"
	chunks := c.Chunk(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
}

func TestChunkEmptyText(t *testing.T) {
	c, err := New(512, 0.2)
	require.NoError(t, err)

	assert.Empty(t, c.Chunk(""))
}

func TestChunkDeterminism(t *testing.T) {
	c, err := New(100, 0.25)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 30)

	first := c.Chunk(text)
	second := c.Chunk(text)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i])
	}
}

func TestChunkCoverage(t *testing.T) {
	c, err := New(64, 0.5)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 50)
	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)

	// Every rune must be covered by at least one chunk range.
	covered := make([]bool, len([]rune(text)))
	for _, ch := range chunks {
		for i := ch.Start; i < ch.End; i++ {
			covered[i] = true
		}
	}
	for i, ok := range covered {
		require.True(t, ok, "rune %d not covered", i)
	}

	// Final chunk ends exactly at the end of text.
	assert.Equal(t, len(covered), chunks[len(chunks)-1].End)
}

func TestChunkOverlapBoundaries(t *testing.T) {
	c, err := New(10, 0.5)
	require.NoError(t, err)

	text := "0123456789abcdefghij"
	chunks := c.Chunk(text)

	// step = 5, so windows start at 0, 5, 10 and the last one reaches the end.
	require.Len(t, chunks, 3)
	assert.Equal(t, "0123456789", chunks[0].Text)
	assert.Equal(t, "56789abcde", chunks[1].Text)
	assert.Equal(t, "abcdefghij", chunks[2].Text)
}

func TestChunkZeroOverlap(t *testing.T) {
	c, err := New(10, 0)
	require.NoError(t, err)

	text := "0123456789abcde"
	chunks := c.Chunk(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "0123456789", chunks[0].Text)
	assert.Equal(t, "abcde", chunks[1].Text)
}

func TestContextWindow(t *testing.T) {
	text := "0123456789abcdefghij"

	assert.Equal(t, "56789abcde", Context(text, 10, 5))
}

func TestContextWindowClamping(t *testing.T) {
	text := "0123456789"

	// Window extends past both ends: clamped to the full text.
	assert.Equal(t, text, Context(text, 5, 50))
	// Window at the start.
	assert.Equal(t, "01234", Context(text, 0, 5))
	// Window at the end.
	assert.Equal(t, "56789", Context(text, 10, 5))
}
