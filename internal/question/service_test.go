package question

import (
	"errors"
	"testing"
)

func TestValidateInput(t *testing.T) {
	valid := Input{
		ClassLevels: []string{"9"},
		SubjectName: "Math",
		Text:        "2 + 2 = ?",
		Options:     []string{"3", "4", "5", "6"},
		Answer:      "4",
	}

	cases := []struct {
		name    string
		mutate  func(in *Input)
		wantErr bool
	}{
		{"valid", func(in *Input) {}, false},
		{"missing subject", func(in *Input) { in.SubjectName = " " }, true},
		{"missing text", func(in *Input) { in.Text = "" }, true},
		{"no class levels", func(in *Input) { in.ClassLevels = nil }, true},
		{"single option", func(in *Input) { in.Options = []string{"4"} }, true},
		{"answer not among options", func(in *Input) { in.Answer = "7" }, true},
		{"answer match is case sensitive", func(in *Input) {
			in.Options = []string{"True", "False"}
			in.Answer = "true"
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := validateInput(in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
