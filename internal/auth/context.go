package auth

import (
	"context"
	"net/http"
	"strings"
)

// Headers carrying the verified identity from the gate to downstream
// handlers. Only the gate may set them; it strips any client-supplied copies.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
	HeaderUserRole  = "X-User-Role"
)

var identityHeaders = []string{HeaderUserID, HeaderUserEmail, HeaderUserName, HeaderUserRole}

type identityContextKey struct{}

// ContextWithIdentity attaches the verified caller to the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, &id)
}

// IdentityFromContext extracts the verified caller from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || v == nil {
		return Identity{}, false
	}
	return *v, true
}

// SetIdentityHeaders writes the identity onto forwarded request headers.
func SetIdentityHeaders(h http.Header, id Identity) {
	h.Set(HeaderUserID, id.UserID)
	h.Set(HeaderUserEmail, id.Email)
	h.Set(HeaderUserName, id.Name)
	h.Set(HeaderUserRole, string(id.Role))
}

// StripIdentityHeaders removes identity headers so a client cannot forge them.
func StripIdentityHeaders(h http.Header) {
	for _, name := range identityHeaders {
		h.Del(name)
	}
}

// IdentityFromHeaders reads the identity the gate forwarded. A missing role
// header resolves to RoleViewer.
func IdentityFromHeaders(h http.Header) (Identity, bool) {
	userID := strings.TrimSpace(h.Get(HeaderUserID))
	if userID == "" {
		return Identity{}, false
	}
	return Identity{
		UserID: userID,
		Email:  h.Get(HeaderUserEmail),
		Name:   h.Get(HeaderUserName),
		Role:   ParseRole(h.Get(HeaderUserRole)),
	}, true
}
