package httpapi

import (
	"net/http"

	"forecast.kathykuohome.com/internal/audit"
	"forecast.kathykuohome.com/internal/store/pg"
)

// POST /api/seed (admin only, enforced by the gate)
func (a *API) handleSeed(w http.ResponseWriter, r *http.Request) {
	created, err := a.departments.SeedDepartments(r.Context(), pg.DefaultDepartments)
	if err != nil {
		a.internalError(w, r, "seed failed", err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventSeeded, map[string]any{"departments_created": created})
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Seeded successfully",
		"created": created,
	})
}
