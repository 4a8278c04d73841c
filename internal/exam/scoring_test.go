package exam

import (
	"testing"
	"time"
)

func keyFromMap(m map[int64]string) func(int64) (string, bool) {
	return func(id int64) (string, bool) {
		v, ok := m[id]
		return v, ok
	}
}

func TestGradeAnswersScenario(t *testing.T) {
	key := keyFromMap(map[int64]string{1: "B", 2: "A", 3: "C"})
	answers := []AnswerInput{
		{QuestionID: 1, SelectedOption: "B"},
		{QuestionID: 2, SelectedOption: ""},
		{QuestionID: 3, SelectedOption: "A"},
	}

	got := GradeAnswers(answers, key)
	want := Tally{Score: 1, Attempts: 2, Total: 3}
	if got != want {
		t.Fatalf("GradeAnswers = %+v, want %+v", got, want)
	}
}

func TestGradeAnswersTable(t *testing.T) {
	key := keyFromMap(map[int64]string{1: "B", 2: "True"})

	cases := []struct {
		name    string
		answers []AnswerInput
		want    Tally
	}{
		{
			"empty submission",
			nil,
			Tally{Score: 0, Attempts: 0, Total: 0},
		},
		{
			"all blank",
			[]AnswerInput{{1, ""}, {2, ""}},
			Tally{Score: 0, Attempts: 0, Total: 2},
		},
		{
			"unknown question id still counts as attempt",
			[]AnswerInput{{99, "B"}},
			Tally{Score: 0, Attempts: 1, Total: 1},
		},
		{
			"match is case sensitive",
			[]AnswerInput{{2, "true"}},
			Tally{Score: 0, Attempts: 1, Total: 1},
		},
		{
			"no whitespace normalization",
			[]AnswerInput{{1, "B "}},
			Tally{Score: 0, Attempts: 1, Total: 1},
		},
		{
			"exact match scores",
			[]AnswerInput{{1, "B"}, {2, "True"}},
			Tally{Score: 2, Attempts: 2, Total: 2},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := GradeAnswers(tc.answers, key)
			if got != tc.want {
				t.Fatalf("GradeAnswers = %+v, want %+v", got, tc.want)
			}
			if got.Score > got.Attempts || got.Attempts > got.Total {
				t.Fatalf("invariant violated: %+v", got)
			}
		})
	}
}

func TestTimeBudgetScenario(t *testing.T) {
	got := TimeBudget(10, 30*time.Second, 10*time.Minute)
	if got.Milliseconds() != 900000 {
		t.Fatalf("TimeBudget(10) = %dms, want 900000ms", got.Milliseconds())
	}
}

func TestTimeBudgetMonotonic(t *testing.T) {
	per := 30 * time.Second
	buffer := 10 * time.Minute
	prev := TimeBudget(0, per, buffer)
	for n := 1; n <= 50; n++ {
		cur := TimeBudget(n, per, buffer)
		if cur <= prev {
			t.Fatalf("budget not monotonic at n=%d: %v <= %v", n, cur, prev)
		}
		prev = cur
	}
}

func TestTimeBudgetNegativeCount(t *testing.T) {
	if got := TimeBudget(-5, 30*time.Second, 10*time.Minute); got != 10*time.Minute {
		t.Fatalf("negative count should yield buffer only, got %v", got)
	}
}
