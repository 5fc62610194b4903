package service

import (
	"regexp"
	"strings"
)

// Difficulty labels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// complexityIndicators are verbs and qualifiers that usually mark
// higher-order exam questions.
var complexityIndicators = map[string]struct{}{
	"analyze":     {},
	"evaluate":    {},
	"compare":     {},
	"contrast":    {},
	"design":      {},
	"develop":     {},
	"implement":   {},
	"optimize":    {},
	"complex":     {},
	"advanced":    {},
	"challenging": {},
}

// EstimateDifficulty classifies a question as easy, medium, or hard from
// word count, complexity keywords, and average sentence length. A rough
// heuristic, not a grading model.
func EstimateDifficulty(text string) string {
	words := strings.Fields(strings.ToLower(text))
	wordCount := len(words)

	complexityCount := 0
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()")
		if _, ok := complexityIndicators[w]; ok {
			complexityCount++
		}
	}

	var sentenceCount, sentenceWords int
	for _, sentence := range sentenceSplitRe.Split(text, -1) {
		n := len(strings.Fields(sentence))
		if n == 0 {
			continue
		}
		sentenceCount++
		sentenceWords += n
	}
	avgSentenceLength := 0.0
	if sentenceCount > 0 {
		avgSentenceLength = float64(sentenceWords) / float64(sentenceCount)
	}

	switch {
	case wordCount > 50 || complexityCount >= 2 || avgSentenceLength > 20:
		return DifficultyHard
	case wordCount > 30 || complexityCount >= 1 || avgSentenceLength > 15:
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}
