package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

// Line patterns for structural hints. Regex-based best effort, no grammar.
var (
	numberedHeadingRe = regexp.MustCompile(`^(?:\d+(?:\.\d+)*[\.\)]?|Chapter\s+\d+[\.:]?|CHAPTER\s+\d+[\.:]?)\s+\S`)
	bracketCitationRe = regexp.MustCompile(`\[\d+\]|\[\w+\s+et\s+al\.?,?\s+\d{4}\]`)
	etAlRe            = regexp.MustCompile(`\bet\s+al\.`)
	referenceHeaderRe = regexp.MustCompile(`(?i)^(references|bibliography|works cited|citations)$`)
)

const (
	maxHeadingLen = 80
	minHeadingLen = 4
)

// IsHeadingLine reports whether a line looks like a section heading: a
// short all-caps line, a line ending with a colon, or a numbered heading.
func IsHeadingLine(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < minHeadingLen || len(line) > maxHeadingLen {
		return false
	}

	if numberedHeadingRe.MatchString(line) {
		return true
	}

	if strings.HasSuffix(line, ":") && !strings.Contains(strings.TrimSuffix(line, ":"), ":") {
		return true
	}

	return isAllCaps(line)
}

// IsCitationLine reports whether a line looks like a citation or footnote:
// bracketed numbers, "et al." patterns, superscript markers, or a
// references-section header.
func IsCitationLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if referenceHeaderRe.MatchString(strings.ToLower(line)) {
		return true
	}
	if bracketCitationRe.MatchString(line) {
		return true
	}
	if etAlRe.MatchString(line) {
		return true
	}
	return containsSuperscript(line)
}

// isAllCaps reports whether every letter in the line is uppercase and the
// line contains at least one letter.
func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func containsSuperscript(line string) bool {
	return strings.ContainsAny(line, "¹²³⁴⁵⁶⁷⁸⁹")
}
