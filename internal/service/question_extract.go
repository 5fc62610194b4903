package service

import (
	"regexp"
	"strings"
)

// ExtractedQuestion is one question pulled out of a past paper page.
type ExtractedQuestion struct {
	Number string
	Text   string
	Page   int
}

// Past papers label questions in a few common styles. Each pattern matches
// a question header at the start of a line and captures the number; the
// question body is everything up to the next header of the same style.
var questionHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^(?:Q|Question)[\s.:]?(\d+)[.)]?[ \t]*`),
	regexp.MustCompile(`(?m)^(\d+)[.)][ \t]*`),
	regexp.MustCompile(`(?m)^QUESTION\s*(\d+)[.:]?[ \t]*`),
}

var (
	whitespaceRe      = regexp.MustCompile(`\s+`)
	sentenceMarkerRe  = regexp.MustCompile(`[.?]`)
	minQuestionLength = 10
)

// ExtractQuestions scans one page of past-paper text for numbered
// questions. The first header style that yields anything wins, so a paper
// using "Question 1" labels is not re-parsed by the bare-number pattern.
func ExtractQuestions(pageText string, page int) []ExtractedQuestion {
	for _, pattern := range questionHeaderPatterns {
		headers := pattern.FindAllStringSubmatchIndex(pageText, -1)
		if len(headers) == 0 {
			continue
		}

		var questions []ExtractedQuestion
		for i, loc := range headers {
			bodyEnd := len(pageText)
			if i+1 < len(headers) {
				bodyEnd = headers[i+1][0]
			}

			number := pageText[loc[2]:loc[3]]
			text := whitespaceRe.ReplaceAllString(strings.TrimSpace(pageText[loc[1]:bodyEnd]), " ")

			// Skip fragments and headings that happen to start with a number.
			if len(text) < minQuestionLength || !sentenceMarkerRe.MatchString(text) {
				continue
			}

			questions = append(questions, ExtractedQuestion{
				Number: number,
				Text:   text,
				Page:   page,
			})
		}

		if len(questions) > 0 {
			return questions
		}
	}
	return nil
}
