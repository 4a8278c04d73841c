package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireRoles(t *testing.T) {
	h := NewHandler(nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	admin := h.RequireRoles("admin")(next)

	cases := []struct {
		name       string
		user       *User
		wantStatus int
	}{
		{"no user in context", nil, http.StatusUnauthorized},
		{"student role", &User{ID: 1, Role: "user"}, http.StatusForbidden},
		{"admin role", &User{ID: 2, Role: "admin"}, http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
			if tc.user != nil {
				req = req.WithContext(ContextWithUser(req.Context(), tc.user))
			}
			rr := httptest.NewRecorder()
			admin.ServeHTTP(rr, req)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
		})
	}
}

func TestCurrentUserRoundTrip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	if _, ok := CurrentUser(req.Context()); ok {
		t.Fatal("empty context should not carry a user")
	}

	u := &User{ID: 7, Username: "alice", Role: "user", ClassLevel: 9}
	ctx := ContextWithUser(req.Context(), u)
	got, ok := CurrentUser(ctx)
	if !ok || got.ID != 7 || got.ClassLevel != 9 {
		t.Fatalf("CurrentUser = %+v ok=%v", got, ok)
	}
}

func TestHashTokenStable(t *testing.T) {
	a := hashToken("token-1")
	b := hashToken("token-1")
	c := hashToken("token-2")
	if a != b {
		t.Fatal("same token should hash identically")
	}
	if a == c {
		t.Fatal("different tokens should not collide")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256 length 64, got %d", len(a))
	}
}
