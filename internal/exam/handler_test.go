package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"examportal/internal/auth"
)

type mockExamService struct {
	startFn  func(ctx context.Context, userID int64, subjectName, chapterName string) (*SessionGrant, error)
	submitFn func(ctx context.Context, userID int64, answers []AnswerInput, subjectName, chapterName string) (*ScoreReport, error)
}

func (m *mockExamService) StartExam(ctx context.Context, userID int64, subjectName, chapterName string) (*SessionGrant, error) {
	if m.startFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.startFn(ctx, userID, subjectName, chapterName)
}

func (m *mockExamService) SubmitExam(ctx context.Context, userID int64, answers []AnswerInput, subjectName, chapterName string) (*ScoreReport, error) {
	if m.submitFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.submitFn(ctx, userID, answers, subjectName, chapterName)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	user := &auth.User{ID: 7, Username: "student", Role: "user", ClassLevel: 9}
	return req.WithContext(auth.ContextWithUser(req.Context(), user))
}

func TestStartRequiresAuth(t *testing.T) {
	h := NewHandler(&mockExamService{})
	rr := httptest.NewRecorder()
	h.Start(rr, httptest.NewRequest(http.MethodPost, "/api/start-exam", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestStartForbiddenWhenNotApproved(t *testing.T) {
	h := NewHandler(&mockExamService{
		startFn: func(ctx context.Context, userID int64, subjectName, chapterName string) (*SessionGrant, error) {
			return nil, ErrNotApproved
		},
	})

	rr := httptest.NewRecorder()
	h.Start(rr, authedRequest(http.MethodPost, "/api/start-exam", `{"subjectName":"Math"}`))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Fatalf("success should be false: %v", body)
	}
}

func TestStartResponseShape(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h := NewHandler(&mockExamService{
		startFn: func(ctx context.Context, userID int64, subjectName, chapterName string) (*SessionGrant, error) {
			if userID != 7 {
				t.Fatalf("userID = %d, want 7", userID)
			}
			if subjectName != "Math" || chapterName != "Algebra" {
				t.Fatalf("scope = %q/%q", subjectName, chapterName)
			}
			return &SessionGrant{
				StartTime:  start,
				ExpiryTime: start.Add(15 * time.Minute),
				Questions: []QuestionView{
					{ID: 1, Text: "2 + 2 = ?", Options: []string{"3", "4"}},
				},
			}, nil
		},
	})

	rr := httptest.NewRecorder()
	h.Start(rr, authedRequest(http.MethodPost, "/api/start-exam", `{"subjectName":"Math","chapterName":"Algebra"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != true {
		t.Fatalf("success should be true: %v", body)
	}
	if int64(body["startTime"].(float64)) != start.UnixMilli() {
		t.Fatalf("startTime = %v, want %d", body["startTime"], start.UnixMilli())
	}
	gap := int64(body["expiryTime"].(float64)) - int64(body["startTime"].(float64))
	if gap != (15 * time.Minute).Milliseconds() {
		t.Fatalf("expiry-start gap = %dms", gap)
	}

	questions, ok := body["questions"].([]any)
	if !ok || len(questions) != 1 {
		t.Fatalf("questions = %v", body["questions"])
	}
	q := questions[0].(map[string]any)
	if _, leaked := q["answer"]; leaked {
		t.Fatal("question payload must not carry the answer")
	}
	if q["text"] != "2 + 2 = ?" {
		t.Fatalf("question text = %v", q["text"])
	}
}

func TestSubmitBeforeStart(t *testing.T) {
	h := NewHandler(&mockExamService{
		submitFn: func(ctx context.Context, userID int64, answers []AnswerInput, subjectName, chapterName string) (*ScoreReport, error) {
			return nil, ErrExamNotStarted
		},
	})

	rr := httptest.NewRecorder()
	h.Submit(rr, authedRequest(http.MethodPost, "/api/submit-result", `{"answers":[]}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "exam not started" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestSubmitTwice(t *testing.T) {
	h := NewHandler(&mockExamService{
		submitFn: func(ctx context.Context, userID int64, answers []AnswerInput, subjectName, chapterName string) (*ScoreReport, error) {
			return nil, ErrAlreadySubmitted
		},
	})

	rr := httptest.NewRecorder()
	h.Submit(rr, authedRequest(http.MethodPost, "/api/submit-result", `{"answers":[{"questionId":1,"selectedOption":"B"}]}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "result already submitted" {
		t.Fatalf("message = %v", body["message"])
	}
}

func TestSubmitSuccess(t *testing.T) {
	h := NewHandler(&mockExamService{
		submitFn: func(ctx context.Context, userID int64, answers []AnswerInput, subjectName, chapterName string) (*ScoreReport, error) {
			if len(answers) != 3 {
				t.Fatalf("answers len = %d, want 3", len(answers))
			}
			return &ScoreReport{Reference: "ref", Score: 1, Attempts: 2, Total: 3, SubmittedAt: time.Now()}, nil
		},
	})

	payload := `{"answers":[{"questionId":1,"selectedOption":"B"},{"questionId":2,"selectedOption":""},{"questionId":3,"selectedOption":"A"}],"subjectName":"Math"}`
	rr := httptest.NewRecorder()
	h.Submit(rr, authedRequest(http.MethodPost, "/api/submit-result", payload))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["success"] != true || body["score"] != float64(1) || body["attempts"] != float64(2) || body["total"] != float64(3) {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSubmitInvalidBody(t *testing.T) {
	h := NewHandler(&mockExamService{})
	rr := httptest.NewRecorder()
	h.Submit(rr, authedRequest(http.MethodPost, "/api/submit-result", `not json`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
