package auth

import (
	"net/http"
	"testing"
)

func TestPolicyPublicPaths(t *testing.T) {
	p := DefaultPolicy
	public := []string{"/login", "/api/auth", "/healthz", "/_next/static/chunk.js", "/static/app.css", "/favicon.ico"}
	for _, path := range public {
		if !p.IsPublic(path) {
			t.Fatalf("%s should be public", path)
		}
	}
	private := []string{"/", "/admin", "/api/users", "/api/authx", "/loginx", "/department/3", "/favicon", "/favicon.ico.bak", "/faviconadmin", "/static"}
	for _, path := range private {
		if p.IsPublic(path) {
			t.Fatalf("%s should not be public", path)
		}
	}
}

func TestPolicyCanViewPage(t *testing.T) {
	cases := []struct {
		role Role
		path string
		want bool
	}{
		{RoleViewer, "/", true},
		{RoleViewer, "/department/abc", true},
		{RoleViewer, "/input", false},
		{RoleViewer, "/admin", false},
		{RoleEditor, "/input", true},
		{RoleEditor, "/input/bulk", true},
		{RoleEditor, "/admin", false},
		{RoleEditor, "/inputs", false},
		{RoleAdmin, "/admin", true},
		{RoleAdmin, "/admin/users", true},
		{RoleAdmin, "/department", true},
		{RoleAdmin, "/settings", false},
	}
	for _, tc := range cases {
		if got := DefaultPolicy.CanViewPage(tc.role, tc.path); got != tc.want {
			t.Fatalf("CanViewPage(%s, %s) = %v, want %v", tc.role, tc.path, got, tc.want)
		}
	}
}

func TestPolicyCheckAPI(t *testing.T) {
	const (
		readOnly  = "Viewers have read-only access"
		adminOnly = "Admin access required"
	)
	cases := []struct {
		role   Role
		method string
		path   string
		reason string
	}{
		{RoleViewer, http.MethodGet, "/api/forecast", ""},
		{RoleViewer, http.MethodPost, "/api/forecast", readOnly},
		{RoleViewer, http.MethodPost, "/api/users", readOnly},
		{RoleViewer, http.MethodGet, "/api/users", adminOnly},
		{RoleViewer, http.MethodGet, "/api/departments", ""},
		{RoleEditor, http.MethodPost, "/api/forecast", ""},
		{RoleEditor, http.MethodGet, "/api/users", adminOnly},
		{RoleEditor, http.MethodPost, "/api/users", adminOnly},
		{RoleEditor, http.MethodPost, "/api/seed", adminOnly},
		{RoleEditor, http.MethodPost, "/api/departments", ""},
		{RoleEditor, http.MethodDelete, "/api/departments", adminOnly},
		{RoleEditor, http.MethodGet, "/api/usersettings", ""},
		{RoleAdmin, http.MethodDelete, "/api/users/42", ""},
		{RoleAdmin, http.MethodPost, "/api/seed", ""},
		{RoleAdmin, http.MethodDelete, "/api/departments", ""},
	}
	for _, tc := range cases {
		d := DefaultPolicy.CheckAPI(tc.role, tc.method, tc.path)
		if d.Allowed != (tc.reason == "") || d.Reason != tc.reason {
			t.Fatalf("CheckAPI(%s %s %s) = %+v, want reason %q", tc.role, tc.method, tc.path, d, tc.reason)
		}
	}
}

func TestPolicyIsAPI(t *testing.T) {
	if !DefaultPolicy.IsAPI("/api") || !DefaultPolicy.IsAPI("/api/users") {
		t.Fatalf("expected api paths")
	}
	if DefaultPolicy.IsAPI("/apiary") || DefaultPolicy.IsAPI("/admin") {
		t.Fatalf("unexpected api match")
	}
}
