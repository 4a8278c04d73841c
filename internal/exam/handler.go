package exam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"examportal/internal/app/apiresp"
	"examportal/internal/auth"
)

type examService interface {
	StartExam(ctx context.Context, userID int64, subjectName, chapterName string) (*SessionGrant, error)
	SubmitExam(ctx context.Context, userID int64, answers []AnswerInput, subjectName, chapterName string) (*ScoreReport, error)
}

type Handler struct {
	svc examService
}

func NewHandler(svc examService) *Handler {
	return &Handler{svc: svc}
}

type startExamRequest struct {
	SubjectName string `json:"subjectName"`
	ChapterName string `json:"chapterName"`
}

type startExamResponse struct {
	Success    bool           `json:"success"`
	StartTime  int64          `json:"startTime"`
	ExpiryTime int64          `json:"expiryTime"`
	Questions  []QuestionView `json:"questions"`
}

type submitResultRequest struct {
	Answers     []AnswerInput `json:"answers"`
	SubjectName string        `json:"subjectName"`
	ChapterName string        `json:"chapterName"`
}

type submitResultResponse struct {
	Success  bool `json:"success"`
	Score    int  `json:"score"`
	Attempts int  `json:"attempts"`
	Total    int  `json:"total"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req startExamRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	grant, err := h.svc.StartExam(r.Context(), user.ID, req.SubjectName, req.ChapterName)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			apiresp.WriteError(w, r, http.StatusBadRequest, "user not found")
		case errors.Is(err, ErrNotApproved):
			apiresp.WriteError(w, r, http.StatusForbidden, "you are not approved for any exams")
		case errors.Is(err, ErrSubjectNotAllowed):
			apiresp.WriteError(w, r, http.StatusForbidden, "you are not approved for this subject")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	apiresp.WriteJSON(w, r, http.StatusOK, startExamResponse{
		Success:    true,
		StartTime:  grant.StartTime.UnixMilli(),
		ExpiryTime: grant.ExpiryTime.UnixMilli(),
		Questions:  grant.Questions,
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req submitResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.svc.SubmitExam(r.Context(), user.ID, req.Answers, req.SubjectName, req.ChapterName)
	if err != nil {
		switch {
		case errors.Is(err, ErrExamNotStarted):
			apiresp.WriteError(w, r, http.StatusBadRequest, "exam not started")
		case errors.Is(err, ErrAlreadySubmitted):
			apiresp.WriteError(w, r, http.StatusBadRequest, "result already submitted")
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	apiresp.WriteJSON(w, r, http.StatusOK, submitResultResponse{
		Success:  true,
		Score:    report.Score,
		Attempts: report.Attempts,
		Total:    report.Total,
	})
}
