package httpapi

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"forecast.kathykuohome.com/internal/auth"
)

type navLink struct {
	Path  string
	Label string
}

var navLinks = []navLink{
	{"/", "Dashboard"},
	{"/input", "Data input"},
	{"/admin", "Admin"},
}

type pageData struct {
	Title string
	User  auth.Identity
	Nav   []navLink
	Body  string
}

var pageTemplates = template.Must(template.New("layout").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} · Forecast</title></head>
<body>
{{- if .User.UserID}}
<nav>
{{- range .Nav}} <a href="{{.Path}}">{{.Label}}</a>{{end}}
<span>{{.User.Name}} ({{.User.Role}})</span>
</nav>
{{- end}}
<main>
<h1>{{.Title}}</h1>
<p>{{.Body}}</p>
</main>
</body>
</html>
{{define "login"}}<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in · Forecast</title></head>
<body>
<form id="login">
<input name="email" type="email" autocomplete="username" required>
<input name="password" type="password" autocomplete="current-password" required>
<button type="submit">Sign in</button>
<p id="error" role="alert"></p>
</form>
<script>
document.getElementById("login").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const f = new FormData(ev.target);
  const res = await fetch("/api/auth", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({email: f.get("email"), password: f.get("password")}),
  });
  if (res.ok) { window.location.assign("/"); return; }
  const body = await res.json().catch(() => ({}));
  document.getElementById("error").textContent = body.error || "Sign in failed";
});
</script>
</body>
</html>
{{end}}`))

// renderPage draws a dashboard shell for the identity the gate forwarded.
func (a *API) renderPage(w http.ResponseWriter, r *http.Request, title, body string) {
	user, _ := auth.IdentityFromHeaders(r.Header)
	var nav []navLink
	for _, l := range navLinks {
		if a.policy.CanViewPage(user.Role, l.Path) {
			nav = append(nav, l)
		}
	}
	a.execute(w, r, "layout", pageData{Title: title, User: user, Nav: nav, Body: body})
}

func (a *API) execute(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := a.pages.ExecuteTemplate(&buf, name, data); err != nil {
		a.internalError(w, r, "render page failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (a *API) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	a.execute(w, r, "login", nil)
}

func (a *API) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "Dashboard", "Company-wide sales and margin against plan.")
}

func (a *API) handleInputPage(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "Data input", "Enter monthly actuals and forecasts.")
}

func (a *API) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "Admin", "Manage users and departments.")
}

func (a *API) handleDepartmentPage(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, "Department", "Department "+chi.URLParam(r, "id"))
}
