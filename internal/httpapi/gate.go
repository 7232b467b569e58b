package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"forecast.kathykuohome.com/internal/audit"
	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/obs"
)

// Gate authenticates and authorizes every request before routing. It is the
// only place a session token is verified for a forwarded request; handlers
// behind it read the identity from the context or the X-User-* headers.
func (a *API) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// identity headers are only ever set below
		auth.StripIdentityHeaders(r.Header)

		path := r.URL.Path
		if a.policy.IsPublic(path) {
			obs.RecordGate(obs.GatePublic)
			next.ServeHTTP(w, r)
			return
		}
		isAPI := a.policy.IsAPI(path)

		token := a.cookies.sessionToken(r)
		if token == "" {
			obs.RecordGate(obs.GateNoSession)
			a.rejectUnauthenticated(w, r, isAPI, msgNotAuthenticated)
			return
		}

		id, err := a.authenticate(r.Context(), token)
		switch {
		case errors.Is(err, auth.ErrRevocationUnavailable):
			obs.RecordGate(obs.GateBackendFailed)
			a.log.Warn("session check unavailable",
				zap.Error(err),
				zap.String("request_id", audit.RequestIDFromContext(r.Context())),
			)
			a.rejectUnauthenticated(w, r, isAPI, msgNotAuthenticated)
			return
		case err != nil:
			obs.RecordGate(obs.GateExpired)
			a.cookies.clearSession(w)
			a.rejectUnauthenticated(w, r, isAPI, msgSessionExpired)
			return
		}

		if isAPI {
			if d := a.policy.CheckAPI(id.Role, r.Method, path); !d.Allowed {
				obs.RecordGate(obs.GateForbidden)
				writeError(w, http.StatusForbidden, d.Reason)
				return
			}
		} else if !a.policy.CanViewPage(id.Role, path) {
			obs.RecordGate(obs.GateRedirected)
			http.Redirect(w, r, a.policy.HomePath, http.StatusTemporaryRedirect)
			return
		}

		obs.RecordGate(obs.GateAllowed)
		auth.SetIdentityHeaders(r.Header, id)
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
	})
}

// authenticate bounds the revocation lookup so a slow backend fails closed.
func (a *API) authenticate(ctx context.Context, token string) (auth.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, a.revocationTimeout)
	defer cancel()
	return a.auth.Authenticate(ctx, token)
}

func (a *API) rejectUnauthenticated(w http.ResponseWriter, r *http.Request, isAPI bool, msg string) {
	if isAPI {
		writeError(w, http.StatusUnauthorized, msg)
		return
	}
	http.Redirect(w, r, a.policy.LoginPath, http.StatusTemporaryRedirect)
}
