package apiresp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorBody(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteError(rr, req, http.StatusForbidden, "not allowed")

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusForbidden)
	}
	var body Failure
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Fatal("success should be false")
	}
	if body.Code != "forbidden" || body.Message != "not allowed" {
		t.Fatalf("body = %+v", body)
	}
}

func TestCodeFromStatus(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{http.StatusBadRequest, "invalid_request"},
		{http.StatusUnauthorized, "unauthorized"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusNotFound, "not_found"},
		{http.StatusConflict, "conflict"},
		{http.StatusTooManyRequests, "rate_limited"},
		{http.StatusInternalServerError, "internal_error"},
		{http.StatusOK, ""},
		{http.StatusBadGateway, "error"},
	}
	for _, tc := range cases {
		if got := codeFromStatus(tc.status); got != tc.want {
			t.Errorf("codeFromStatus(%d) = %q, want %q", tc.status, got, tc.want)
		}
	}
}
