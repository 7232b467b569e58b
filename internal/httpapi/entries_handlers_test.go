package httpapi

import (
	"net/http"
	"testing"

	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/store/pg"
)

func rugsEntry(typ string, sales float64) map[string]any {
	return map[string]any{
		"departmentId": "dept-rugs", "year": 2025, "month": 3, "type": typ,
		"grossBookedSales": sales, "gmPercent": 0.42, "cpPercent": 0.18,
	}
}

func TestViewerCannotSaveEntries(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodPost, "/api/entries", map[string]any{
		"entries": []any{rugsEntry(pg.EntryActual, 100)},
	}, env.tokenFor("viewer-1"), nil)
	expectError(t, resp, http.StatusForbidden, "Viewers have read-only access")
	if len(env.entries.entries) != 0 {
		t.Fatalf("viewer write reached the store: %+v", env.entries.entries)
	}
}

func TestEditorUpsertsEntries(t *testing.T) {
	env := newTestEnv(t)
	editor := env.tokenFor("editor-1")

	first := env.do(http.MethodPost, "/api/entries", map[string]any{
		"entries": []any{rugsEntry(pg.EntryActual, 100), rugsEntry(pg.EntryForecast, 120)},
	}, editor, nil)
	if first.StatusCode != http.StatusOK {
		first.Body.Close()
		t.Fatalf("expected 200, got %d", first.StatusCode)
	}
	body := decode[map[string]any](t, first)
	if body["ok"] != true || body["count"] != float64(2) {
		t.Fatalf("unexpected body %v", body)
	}

	// same key: the actual row is replaced, not duplicated
	second := env.do(http.MethodPost, "/api/entries", map[string]any{
		"entries": []any{rugsEntry(pg.EntryActual, 250)},
	}, editor, map[string]string{auth.HeaderUserName: "Someone Else"})
	second.Body.Close()
	if second.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", second.StatusCode)
	}

	list := env.do(http.MethodGet, "/api/entries?departmentId=dept-rugs&year=2025", nil, env.tokenFor("viewer-1"), nil)
	if list.StatusCode != http.StatusOK {
		list.Body.Close()
		t.Fatalf("expected 200, got %d", list.StatusCode)
	}
	got := decode[[]pg.Entry](t, list)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %+v", got)
	}
	for _, e := range got {
		if e.UpdatedBy != "Ed Editor" {
			t.Fatalf("updatedBy must come from the session, got %q", e.UpdatedBy)
		}
		if e.Type == pg.EntryActual && e.GrossBookedSales != 250 {
			t.Fatalf("actual not updated: %+v", e)
		}
	}

	other := env.do(http.MethodGet, "/api/entries?year=2024", nil, editor, nil)
	if rows := decode[[]pg.Entry](t, other); len(rows) != 0 {
		t.Fatalf("year filter ignored: %+v", rows)
	}
}

func TestSaveEntriesValidation(t *testing.T) {
	env := newTestEnv(t)
	editor := env.tokenFor("editor-1")
	with := func(k string, v any) map[string]any {
		e := rugsEntry(pg.EntryActual, 1)
		e[k] = v
		return map[string]any{"entries": []any{e}}
	}
	cases := []struct {
		name string
		body any
		msg  string
	}{
		{"missing array", map[string]any{}, "entries array is required"},
		{"bad month", with("month", 13), "Entry 1: Month must be between 1 and 12"},
		{"bad type", with("type", "budget"), "Entry 1: Type must be actual or forecast"},
		{"bad year", with("year", 1999), "Entry 1: Invalid year"},
		{"no department", with("departmentId", " "), "Entry 1: departmentId is required"},
		{"unknown department", with("departmentId", "dept-gone"), "Department not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/api/entries", tc.body, editor, nil)
			expectError(t, resp, http.StatusBadRequest, tc.msg)
		})
	}

	resp := env.do(http.MethodGet, "/api/entries?year=next", nil, editor, nil)
	expectError(t, resp, http.StatusBadRequest, "Invalid year")
}
