package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"forecast.kathykuohome.com/internal/audit"
	"forecast.kathykuohome.com/internal/store/pg"
)

type createAnnotationRequest struct {
	DepartmentID string `json:"departmentId"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	Text         string `json:"text"`
}

func (a *API) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	f, ok := listFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	notes, err := a.annotations.ListAnnotations(r.Context(), f)
	if err != nil {
		a.internalError(w, r, "list annotations failed", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// The author is whoever the gate verified, never a name from the body.
func (a *API) handleCreateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req createAnnotationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	dept := strings.TrimSpace(req.DepartmentID)
	text := strings.TrimSpace(req.Text)
	if dept == "" || req.Year == 0 || req.Month == 0 || text == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "Month must be between 1 and 12")
		return
	}

	id, name := callerName(r)
	note, err := a.annotations.CreateAnnotation(r.Context(), pg.Annotation{
		DepartmentID: dept,
		Year:         req.Year,
		Month:        req.Month,
		Text:         text,
		Author:       name,
		AuthorID:     id.UserID,
	})
	if err != nil {
		if errors.Is(err, pg.ErrUnknownDepartment) {
			writeError(w, http.StatusBadRequest, "Department not found")
			return
		}
		a.internalError(w, r, "create annotation failed", err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventAnnotationAdded, map[string]any{"annotation_id": note.ID, "department_id": dept})
	writeJSON(w, http.StatusCreated, note)
}

// DELETE /api/annotations?id=
func (a *API) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}
	if err := a.annotations.DeleteAnnotation(r.Context(), id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Annotation not found")
			return
		}
		a.internalError(w, r, "delete annotation failed", err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventAnnotationGone, map[string]any{"annotation_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
