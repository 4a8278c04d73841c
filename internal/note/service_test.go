package note

import (
	"errors"
	"testing"
)

func TestValidateInput(t *testing.T) {
	valid := Input{
		ClassLevels: []string{"9"},
		SubjectName: "Physics",
		Content:     "Newton's laws summary",
	}

	cases := []struct {
		name    string
		mutate  func(in *Input)
		wantErr bool
	}{
		{"valid", func(in *Input) {}, false},
		{"missing subject", func(in *Input) { in.SubjectName = "  " }, true},
		{"missing content", func(in *Input) { in.Content = "" }, true},
		{"no class levels", func(in *Input) { in.ClassLevels = nil }, true},
		{"chapter optional", func(in *Input) { in.ChapterName = "" }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := validateInput(in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("err = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
