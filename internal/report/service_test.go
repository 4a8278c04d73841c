package report

import "testing"

func TestScopeLabel(t *testing.T) {
	cases := []struct {
		subject string
		chapter string
		want    string
	}{
		{"", "", "(all subjects)"},
		{"Math", "", "Math"},
		{"Math", "Algebra", "Math / Algebra"},
		{" Math ", " ", "Math"},
	}
	for _, tc := range cases {
		if got := scopeLabel(tc.subject, tc.chapter); got != tc.want {
			t.Fatalf("scopeLabel(%q, %q) = %q, want %q", tc.subject, tc.chapter, got, tc.want)
		}
	}
}
