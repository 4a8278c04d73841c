package exam

import "time"

// AnswerInput is one submitted answer. SelectedOption is empty when the
// student left the question blank.
type AnswerInput struct {
	QuestionID     int64  `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
}

// Tally is the outcome of grading one submission.
type Tally struct {
	Score    int
	Attempts int
	Total    int
}

// GradeAnswers scores a submission against the authoritative answer key.
// Every answer counts toward Total. A non-empty selection counts as an
// attempt even when the question id resolves to nothing; only an exact,
// case-sensitive match with the stored answer scores.
func GradeAnswers(answers []AnswerInput, answerKey func(questionID int64) (string, bool)) Tally {
	t := Tally{Total: len(answers)}
	for _, a := range answers {
		if a.SelectedOption == "" {
			continue
		}
		t.Attempts++
		correct, ok := answerKey(a.QuestionID)
		if !ok {
			continue
		}
		if a.SelectedOption == correct {
			t.Score++
		}
	}
	return t
}

// TimeBudget is the wall-clock span granted for an exam of n questions.
func TimeBudget(n int, perQuestion, buffer time.Duration) time.Duration {
	if n < 0 {
		n = 0
	}
	return time.Duration(n)*perQuestion + buffer
}
