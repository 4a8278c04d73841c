package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// Routing smoke test; no database behind it, so only paths that do not
// reach storage are exercised.
func TestRouterSmoke(t *testing.T) {
	r := NewRouter(LoadConfig(), nil)

	cases := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"health check", http.MethodGet, "/healthz", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"profile without session", http.MethodGet, "/api/profile", http.StatusUnauthorized},
		{"start-exam without session", http.MethodPost, "/api/start-exam", http.StatusUnauthorized},
		{"bare start-exam without session", http.MethodPost, "/start-exam", http.StatusUnauthorized},
		{"submit-result without session", http.MethodPost, "/submit-result", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tc.wantStatus {
				t.Fatalf("%s %s = %d, want %d", tc.method, tc.target, rr.Code, tc.wantStatus)
			}
		})
	}
}
