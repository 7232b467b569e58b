package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"forecast.kathykuohome.com/internal/audit"
	"forecast.kathykuohome.com/internal/store/pg"
)

type createDepartmentRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (a *API) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	deps, err := a.departments.ListDepartments(r.Context())
	if err != nil {
		a.internalError(w, r, "list departments failed", err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

// viewers never get here: the gate limits them to GET
func (a *API) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req createDepartmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	d, err := a.departments.CreateDepartment(r.Context(), req.Name, req.Category)
	if err != nil {
		if errors.Is(err, pg.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "Department already exists")
			return
		}
		a.internalError(w, r, "create department failed", err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventDepartmentAdded, map[string]any{"department_id": d.ID, "name": d.Name})
	writeJSON(w, http.StatusCreated, d)
}

// DELETE /api/departments?id= (admin only, enforced by the gate)
func (a *API) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}
	if err := a.departments.DeleteDepartment(r.Context(), id); err != nil {
		if errors.Is(err, pg.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Department not found")
			return
		}
		a.internalError(w, r, "delete department failed", err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventDepartmentGone, map[string]any{"department_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
