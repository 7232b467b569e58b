package auth

import (
	"net/http"
	"strings"
)

// APIRule restricts a slice of the API surface to a set of roles. A request
// matches when its path is Prefix or below it and its method is covered:
// listed in Methods, or (when Methods is empty) not listed in ExceptMethods.
type APIRule struct {
	Prefix        string
	Methods       []string
	ExceptMethods []string
	Allow         []Role
	Reason        string
}

// Decision is the outcome of an API authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Policy is the complete authorization surface: which paths skip
// authentication, which pages each role may open, and the extra API
// restrictions layered on top of being signed in. It is read-only after
// construction and safe for concurrent use.
type Policy struct {
	LoginPath      string
	HomePath       string
	APIPrefix      string
	PublicPaths    []string
	StaticPrefixes []string
	Pages          map[Role][]string
	API            []APIRule
}

// DefaultPolicy is the forecast dashboard's access table.
var DefaultPolicy = &Policy{
	LoginPath: "/login",
	HomePath:  "/",
	APIPrefix: "/api",
	PublicPaths: []string{
		"/login",
		"/api/auth",
		"/healthz",
		"/readyz",
		"/metrics",
	},
	StaticPrefixes: []string{
		"/_next/",
		"/static/",
		"/favicon.ico",
	},
	Pages: map[Role][]string{
		RoleViewer: {"/department"},
		RoleEditor: {"/department", "/input"},
		RoleAdmin:  {"/department", "/input", "/admin"},
	},
	API: []APIRule{
		{
			Prefix:        "/api",
			ExceptMethods: []string{http.MethodGet},
			Allow:         []Role{RoleAdmin, RoleEditor},
			Reason:        "Viewers have read-only access",
		},
		{
			Prefix: "/api/users",
			Allow:  []Role{RoleAdmin},
			Reason: "Admin access required",
		},
		{
			Prefix: "/api/seed",
			Allow:  []Role{RoleAdmin},
			Reason: "Admin access required",
		},
		{
			Prefix:  "/api/departments",
			Methods: []string{http.MethodDelete},
			Allow:   []Role{RoleAdmin},
			Reason:  "Admin access required",
		},
	},
}

// IsPublic reports whether path is served without a session.
func (p *Policy) IsPublic(path string) bool {
	for _, pub := range p.PublicPaths {
		if underPrefix(path, pub) {
			return true
		}
	}
	for _, prefix := range p.StaticPrefixes {
		if staticMatch(path, prefix) {
			return true
		}
	}
	return false
}

// staticMatch treats entries ending in "/" as directories and anything else
// as a single file.
func staticMatch(path, entry string) bool {
	if strings.HasSuffix(entry, "/") {
		return strings.HasPrefix(path, entry)
	}
	return path == entry
}

// IsAPI reports whether path belongs to the JSON API rather than a page.
func (p *Policy) IsAPI(path string) bool {
	return underPrefix(path, p.APIPrefix)
}

// CanViewPage reports whether role may open the page at path.
func (p *Policy) CanViewPage(role Role, path string) bool {
	if path == p.HomePath {
		return true
	}
	for _, prefix := range p.Pages[role] {
		if underPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// CheckAPI applies the API rules in order; the first rule that matches the
// request and excludes role decides the denial reason.
func (p *Policy) CheckAPI(role Role, method, path string) Decision {
	for _, rule := range p.API {
		if !rule.matches(method, path) {
			continue
		}
		if !hasRole(rule.Allow, role) {
			return Decision{Reason: rule.Reason}
		}
	}
	return Decision{Allowed: true}
}

func (r APIRule) matches(method, path string) bool {
	if !underPrefix(path, r.Prefix) {
		return false
	}
	if len(r.Methods) > 0 {
		return containsMethod(r.Methods, method)
	}
	return !containsMethod(r.ExceptMethods, method)
}

// underPrefix matches path == prefix or path below prefix at a "/" boundary.
func underPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func containsMethod(methods []string, method string) bool {
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func hasRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
