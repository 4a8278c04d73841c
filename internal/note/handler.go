package note

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"examportal/internal/app/apiresp"
	"examportal/internal/auth"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type noteRequest struct {
	ClassLevels []string `json:"classLevels"`
	SubjectName string   `json:"subjectName"`
	ChapterName string   `json:"chapterName"`
	Content     string   `json:"content"`
}

func (req noteRequest) toInput() Input {
	return Input{
		ClassLevels: req.ClassLevels,
		SubjectName: req.SubjectName,
		ChapterName: req.ChapterName,
		Content:     req.Content,
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true, "notes": items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.svc.Create(r.Context(), req.toInput())
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusCreated, map[string]any{"success": true, "note": created})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid note id")
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.svc.Update(r.Context(), id, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, ErrNoteNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "note not found")
		case errors.Is(err, ErrInvalidInput):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true, "note": updated})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid note id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, "note not found")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true})
}

// StudentNotes serves the notes for the logged-in user's class level.
func (h *Handler) StudentNotes(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	subjectName := strings.TrimSpace(q.Get("subjectName"))
	if subjectName == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "subjectName is required")
		return
	}

	items, err := h.svc.ListForStudent(r.Context(), strconv.Itoa(user.ClassLevel), subjectName, q.Get("chapterName"))
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true, "notes": items})
}
