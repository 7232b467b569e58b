package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"forecast.kathykuohome.com/internal/audit"
	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/store/pg"
)

const (
	minEntryYear = 2000
	maxEntryYear = 2100
)

type entryInput struct {
	DepartmentID     string  `json:"departmentId"`
	Year             int     `json:"year"`
	Month            int     `json:"month"`
	Type             string  `json:"type"`
	GrossBookedSales float64 `json:"grossBookedSales"`
	GMPercent        float64 `json:"gmPercent"`
	CPPercent        float64 `json:"cpPercent"`
	// Accepted for older clients; the verified caller is recorded instead.
	UpdatedBy string `json:"updatedBy"`
}

type saveEntriesRequest struct {
	Entries []entryInput `json:"entries"`
}

// listFilter reads ?departmentId= and ?year= shared by entries and annotations.
func listFilter(r *http.Request) (pg.Filter, bool) {
	q := r.URL.Query()
	f := pg.Filter{DepartmentID: strings.TrimSpace(q.Get("departmentId"))}
	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return pg.Filter{}, false
		}
		f.Year = year
	}
	return f, true
}

// callerName is the display name the gate forwarded for the request.
func callerName(r *http.Request) (auth.Identity, string) {
	id, _ := auth.IdentityFromHeaders(r.Header)
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = "Unknown"
	}
	return id, name
}

// GET /api/entries?departmentId=&year=
func (a *API) handleListEntries(w http.ResponseWriter, r *http.Request) {
	f, ok := listFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	entries, err := a.entries.ListEntries(r.Context(), f)
	if err != nil {
		a.internalError(w, r, "list entries failed", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// POST /api/entries upserts by department, year, month and type.
func (a *API) handleSaveEntries(w http.ResponseWriter, r *http.Request) {
	var req saveEntriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Entries == nil {
		writeError(w, http.StatusBadRequest, "entries array is required")
		return
	}

	entries := make([]pg.Entry, 0, len(req.Entries))
	for i, in := range req.Entries {
		e, msg := in.toEntry()
		if msg != "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Entry %d: %s", i+1, msg))
			return
		}
		entries = append(entries, e)
	}

	_, name := callerName(r)
	n, err := a.entries.UpsertEntries(r.Context(), entries, name)
	if err != nil {
		if errors.Is(err, pg.ErrUnknownDepartment) {
			writeError(w, http.StatusBadRequest, "Department not found")
			return
		}
		a.internalError(w, r, "save entries failed", err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventEntriesSaved, map[string]any{"count": n})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

func (in entryInput) toEntry() (pg.Entry, string) {
	dept := strings.TrimSpace(in.DepartmentID)
	if dept == "" {
		return pg.Entry{}, "departmentId is required"
	}
	if in.Year < minEntryYear || in.Year > maxEntryYear {
		return pg.Entry{}, "Invalid year"
	}
	if in.Month < 1 || in.Month > 12 {
		return pg.Entry{}, "Month must be between 1 and 12"
	}
	typ := strings.ToLower(strings.TrimSpace(in.Type))
	if typ != pg.EntryActual && typ != pg.EntryForecast {
		return pg.Entry{}, "Type must be actual or forecast"
	}
	return pg.Entry{
		DepartmentID:     dept,
		Year:             in.Year,
		Month:            in.Month,
		Type:             typ,
		GrossBookedSales: in.GrossBookedSales,
		GMPercent:        in.GMPercent,
		CPPercent:        in.CPPercent,
	}, ""
}
