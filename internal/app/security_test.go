package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterWindow(t *testing.T) {
	l := NewIPRateLimiter(2, 50*time.Millisecond)

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request in window should be rejected")
	}
	if !l.Allow("b") {
		t.Fatal("different key should not share the bucket")
	}

	time.Sleep(60 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatal("new window should allow again")
	}
}

func TestCSRFMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := CSRFMiddleware(true)(next)

	cases := []struct {
		name       string
		method     string
		cookie     string
		header     string
		wantStatus int
	}{
		{"get passes without token", http.MethodGet, "", "", http.StatusNoContent},
		{"post without cookie", http.MethodPost, "", "", http.StatusForbidden},
		{"post header mismatch", http.MethodPost, "tok-1", "tok-2", http.StatusForbidden},
		{"post matching token", http.MethodPost, "tok-1", "tok-1", http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/login", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tc.cookie})
			}
			if tc.header != "" {
				req.Header.Set(csrfHeaderName, tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
		})
	}

	disabled := CSRFMiddleware(false)(next)
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	rr := httptest.NewRecorder()
	disabled.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("disabled middleware should pass through, got %d", rr.Code)
	}
}
