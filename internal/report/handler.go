package report

import (
	"net/http"

	"examportal/internal/app/apiresp"
	"examportal/internal/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Profile returns the logged-in user together with their result history.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		apiresp.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	results, err := h.svc.ResultsForUser(r.Context(), user.ID)
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"results": results,
	})
}

func (h *Handler) SubjectSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.SubjectSummaries(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteJSON(w, r, http.StatusOK, map[string]any{"success": true, "summaries": summaries})
}

func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportResultsExcel(r.Context())
	if err != nil {
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="results.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
