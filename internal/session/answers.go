package session

import (
	"strconv"
	"strings"
)

// evaluateAnswer scores a submitted value against a question.
//
// Multiple choice submissions carry the chosen option's index; the answer is
// correct iff it parses to the stored correct index. True/false and text
// answers match case-insensitively after trimming surrounding whitespace.
// Correct answers earn the question's full points, anything else earns zero.
func evaluateAnswer(q *Question, value string) AnswerResult {
	correct := false
	switch q.Type {
	case TypeMultipleChoice:
		idx, err := strconv.Atoi(strings.TrimSpace(value))
		correct = err == nil && idx == q.CorrectIndex
	case TypeTrueFalse, TypeText:
		correct = strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(q.CorrectAnswer))
	}

	points := 0
	if correct {
		points = q.Points
	}
	return AnswerResult{IsCorrect: correct, PointsAwarded: points}
}
