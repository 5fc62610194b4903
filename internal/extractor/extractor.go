// Package extractor reads per-page text out of uploaded PDFs along with
// heuristic structural hints (headings, citation lines).
package extractor

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/syllabuzz/syllabuzz/internal/domain"
)

// Hint is a heuristically detected structural line. Hints are best-effort
// annotations, not ground truth; callers must tolerate false positives.
type Hint struct {
	Page int    `json:"page"`
	Line string `json:"line"`
	Kind string `json:"kind"`
}

// Hint kinds.
const (
	HintHeading  = "heading"
	HintCitation = "citation"
)

// Extraction is the result of reading one PDF.
type Extraction struct {
	// Pages maps 1-based page numbers to raw page text. Iterate with
	// page numbers 1..PageCount for a stable order.
	Pages     map[int]string
	PageCount int
	Headings  []Hint
	Citations []Hint
	// Title is the first non-empty line of page 1, used as a fallback
	// when the upload carries no title.
	Title string
}

// Extract reads every page of the PDF in r. It fails with ExtractionError
// if the bytes are not a readable, unencrypted PDF.
func Extract(name string, r io.ReaderAt, size int64) (ext *Extraction, err error) {
	// The pdf library panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			ext = nil
			err = &domain.ExtractionError{Name: name, Err: fmt.Errorf("malformed pdf: %v", rec)}
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, &domain.ExtractionError{Name: name, Err: err}
	}

	pageCount := reader.NumPage()
	if pageCount == 0 {
		return nil, &domain.ExtractionError{Name: name, Err: fmt.Errorf("document has no pages")}
	}

	result := &Extraction{
		Pages:     make(map[int]string, pageCount),
		PageCount: pageCount,
	}

	for num := 1; num <= pageCount; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			result.Pages[num] = ""
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &domain.ExtractionError{
				Name: name,
				Err:  fmt.Errorf("page %d: %w", num, err),
			}
		}
		result.Pages[num] = text

		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if IsHeadingLine(line) {
				result.Headings = append(result.Headings, Hint{Page: num, Line: line, Kind: HintHeading})
			}
			if IsCitationLine(line) {
				result.Citations = append(result.Citations, Hint{Page: num, Line: line, Kind: HintCitation})
			}
		}
	}

	result.Title = firstNonEmptyLine(result.Pages[1])

	return result, nil
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
