package subject

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

type subjectRequest struct {
	Name        string   `json:"name"`
	ClassLevels []string `json:"classLevels"`
	Chapters    []string `json:"chapters"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true, "subjects": items})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.svc.Create(r.Context(), req.Name, req.ClassLevels, req.Chapters)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusCreated, map[string]any{"success": true, "subject": sub})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid subject id")
		return
	}

	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.svc.Update(r.Context(), id, req.Name, req.ClassLevels, req.Chapters)
	if err != nil {
		switch {
		case errors.Is(err, ErrSubjectNotFound):
			apiresp.WriteError(w, r, http.StatusNotFound, "subject not found")
		case errors.Is(err, ErrInvalidInput):
			apiresp.WriteError(w, r, http.StatusBadRequest, err.Error())
		default:
			apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true, "subject": sub})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid subject id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			apiresp.WriteError(w, r, http.StatusNotFound, "subject not found")
			return
		}
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true})
}

// StudentSubjects lists the subjects the logged-in user can take exams in.
func (h *Handler) StudentSubjects(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	levels := classLevelsParam(r, user.ClassLevel)
	items, err := h.svc.ListForStudent(r.Context(), user.ID, user.Role == "admin", levels)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true, "subjects": items})
}

func (h *Handler) Chapters(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	subjectName := strings.TrimSpace(r.URL.Query().Get("subjectName"))
	if subjectName == "" {
		apiresp.WriteError(w, r, http.StatusBadRequest, "subjectName is required")
		return
	}

	levels := classLevelsParam(r, user.ClassLevel)
	chapters, err := h.svc.ChaptersFor(r.Context(), levels, subjectName)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true, "chapters": chapters})
}

func classLevelsParam(r *http.Request, fallbackLevel int) []string {
	raw := strings.TrimSpace(r.URL.Query().Get("classLevels"))
	if raw == "" {
		return []string{strconv.Itoa(fallbackLevel)}
	}
	return splitCSV(raw)
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
