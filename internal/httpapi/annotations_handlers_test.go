package httpapi

import (
	"net/http"
	"testing"

	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/store/pg"
)

func TestAnnotationAuthorComesFromSession(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodPost, "/api/annotations", map[string]any{
		"departmentId": "dept-rugs", "year": 2025, "month": 4, "text": " promo moved to May ",
	}, env.tokenFor("editor-1"), map[string]string{
		auth.HeaderUserName: "Ada Admin",
		auth.HeaderUserID:   "admin-1",
	})
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	note := decode[pg.Annotation](t, resp)
	if note.Author != "Ed Editor" || note.AuthorID != "editor-1" {
		t.Fatalf("author taken from request headers: %+v", note)
	}
	if note.Text != "promo moved to May" {
		t.Fatalf("text not trimmed: %q", note.Text)
	}
}

func TestViewerCannotAnnotate(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodPost, "/api/annotations", map[string]any{
		"departmentId": "dept-rugs", "year": 2025, "month": 4, "text": "hi",
	}, env.tokenFor("viewer-1"), nil)
	expectError(t, resp, http.StatusForbidden, "Viewers have read-only access")
}

func TestAnnotationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	editor := env.tokenFor("editor-1")

	for _, body := range []map[string]any{
		{"departmentId": "dept-rugs", "year": 2025, "month": 1, "text": "first"},
		{"departmentId": "dept-rugs", "year": 2024, "month": 12, "text": "older"},
	} {
		resp := env.do(http.MethodPost, "/api/annotations", body, editor, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
	}

	list := env.do(http.MethodGet, "/api/annotations?departmentId=dept-rugs&year=2025", nil, env.tokenFor("viewer-1"), nil)
	notes := decode[[]pg.Annotation](t, list)
	if len(notes) != 1 || notes[0].Text != "first" {
		t.Fatalf("unexpected annotations %+v", notes)
	}

	del := env.do(http.MethodDelete, "/api/annotations?id="+notes[0].ID, nil, editor, nil)
	del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", del.StatusCode)
	}
	again := env.do(http.MethodDelete, "/api/annotations?id="+notes[0].ID, nil, editor, nil)
	expectError(t, again, http.StatusNotFound, "Annotation not found")
	missing := env.do(http.MethodDelete, "/api/annotations", nil, editor, nil)
	expectError(t, missing, http.StatusBadRequest, "ID is required")
}

func TestCreateAnnotationValidation(t *testing.T) {
	env := newTestEnv(t)
	editor := env.tokenFor("editor-1")
	cases := []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"no text", map[string]any{"departmentId": "dept-rugs", "year": 2025, "month": 1, "text": "  "}, "Missing required fields"},
		{"no month", map[string]any{"departmentId": "dept-rugs", "year": 2025, "text": "x"}, "Missing required fields"},
		{"bad month", map[string]any{"departmentId": "dept-rugs", "year": 2025, "month": 13, "text": "x"}, "Month must be between 1 and 12"},
		{"unknown department", map[string]any{"departmentId": "dept-gone", "year": 2025, "month": 1, "text": "x"}, "Department not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/api/annotations", tc.body, editor, nil)
			expectError(t, resp, http.StatusBadRequest, tc.msg)
		})
	}
}
