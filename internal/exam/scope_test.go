package exam

import (
	"errors"
	"testing"
)

func TestCapabilityAllows(t *testing.T) {
	cases := []struct {
		name     string
		role     string
		approved []string
		subject  string
		wantErr  error
	}{
		{"admin bypasses approval", "admin", nil, "Math", nil},
		{"admin without subject", "admin", nil, "", nil},
		{"empty approved set is refused", "user", nil, "Math", ErrNotApproved},
		{"empty approved set refused even unscoped", "user", nil, "", ErrNotApproved},
		{"approved subject passes", "user", []string{"Math", "Physics"}, "Math", nil},
		{"unscoped start with approvals passes", "user", []string{"Math"}, "", nil},
		{"unapproved subject refused", "user", []string{"Math"}, "History", ErrSubjectNotAllowed},
		{"subject match is exact", "user", []string{"Math"}, "math", ErrSubjectNotAllowed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCapability(tc.role, tc.approved)
			err := c.allows(tc.subject)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("allows(%q) = %v, want %v", tc.subject, err, tc.wantErr)
			}
		})
	}
}
