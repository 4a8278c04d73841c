package subject

import (
	"reflect"
	"testing"
)

func TestDedupStrings(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"keeps first-seen order", []string{"Algebra", "Geometry", "Algebra"}, []string{"Algebra", "Geometry"}},
		{"drops blanks", []string{" ", "Algebra", ""}, []string{"Algebra"}},
		{"empty input", nil, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dedupStrings(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("dedupStrings(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeList(t *testing.T) {
	got := normalizeList([]string{" 9 ", "", "10"})
	want := []string{"9", "10"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalizeList = %v, want %v", got, want)
	}
}
