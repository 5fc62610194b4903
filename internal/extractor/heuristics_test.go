package extractor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

// Heuristic detection is best-effort; these tests pin down clear positives
// and clear negatives rather than exact boundaries.

func TestIsHeadingLine(t *testing.T) {
	positives := []string{
		"INTRODUCTION",
		"BINARY SEARCH TREES",
		"Overview:",
		"1. Sorting Algorithms",
		"2.3 Complexity Analysis",
		"Chapter 4: Graphs",
		"CHAPTER 2 TREES",
	}
	for _, line := range positives {
		assert.True(t, IsHeadingLine(line), "expected heading: %q", line)
	}

	negatives := []string{
		"",
		"a",
		"This is a normal sentence describing an algorithm in prose.",
		"the quick brown fox jumps over the lazy dog and keeps running far past any plausible heading length limit for a document",
		"see http://example.com: details",
	}
	for _, line := range negatives {
		assert.False(t, IsHeadingLine(line), "unexpected heading: %q", line)
	}
}

func TestIsCitationLine(t *testing.T) {
	positives := []string{
		"[1] Cormen, T. Introduction to Algorithms.",
		"as shown in [Smith et al. 2020]",
		"Knuth et al. describe the approach",
		"References",
		"BIBLIOGRAPHY",
		"complexity is O(n log n)¹",
	}
	for _, line := range positives {
		assert.True(t, IsCitationLine(line), "expected citation: %q", line)
	}

	negatives := []string{
		"",
		"Sorting is the process of arranging items.",
		"Question 1. Define a binary search tree.",
	}
	for _, line := range negatives {
		assert.False(t, IsCitationLine(line), "unexpected citation: %q", line)
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	data := []byte("this is definitely not a pdf document")

	_, err := Extract("garbage.bin", bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)

	var extErr *domain.ExtractionError
	assert.ErrorAs(t, err, &extErr)
}

func TestExtractRejectsTruncatedPDF(t *testing.T) {
	// Valid header, garbage body.
	data := []byte("%PDF-1.4\nnot a real body")

	_, err := Extract("truncated.pdf", bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)

	var extErr *domain.ExtractionError
	assert.ErrorAs(t, err, &extErr)
}
