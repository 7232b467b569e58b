package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"forecast.kathykuohome.com/internal/audit"
	"forecast.kathykuohome.com/internal/auth"
	"forecast.kathykuohome.com/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type sessionUser struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

type loginResponse struct {
	OK   bool        `json:"ok"`
	User sessionUser `json:"user"`
}

type whoamiResponse struct {
	User *auth.Identity `json:"user"`
}

// POST /api/auth
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.RecordLogin("invalid_input")
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, token, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			obs.RecordLogin("invalid_input")
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.RecordLogin("invalid_credentials")
			_ = audit.LogEvent(r.Context(), audit.EventLoginFailed, map[string]any{
				"email": auth.NormalizeEmail(req.Email),
			})
			writeError(w, http.StatusUnauthorized, msgInvalidLogin)
			return
		}
		obs.RecordLogin("error")
		a.internalError(w, r, "login failed", err)
		return
	}

	obs.RecordLogin("success")
	a.cookies.setSession(w, token)
	a.cookies.clearLegacy(w)
	_ = audit.LogEvent(auth.ContextWithIdentity(r.Context(), user.Identity()), audit.EventLoginSucceeded, map[string]any{
		"email": user.Email,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		OK:   true,
		User: sessionUser{Name: user.Name, Email: user.Email, Role: user.Role},
	})
}

// GET /api/auth
func (a *API) handleWhoami(w http.ResponseWriter, r *http.Request) {
	token := a.cookies.sessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, whoamiResponse{})
		return
	}
	id, ok := a.auth.Whoami(r.Context(), token)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, whoamiResponse{})
		return
	}
	writeJSON(w, http.StatusOK, whoamiResponse{User: &id})
}

// PATCH /api/auth
//
// The identity comes from the session cookie, never from the body.
func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	token := a.cookies.sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return
	}
	caller, err := a.authenticate(r.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrRevocationUnavailable) {
			a.cookies.clearSession(w)
		}
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	ctx := auth.ContextWithIdentity(r.Context(), caller)
	fresh, err := a.auth.ChangePassword(ctx, caller, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Current password is incorrect")
		case errors.Is(err, auth.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			a.internalError(w, r, "change password failed", err)
		}
		return
	}

	if fresh != "" {
		a.cookies.setSession(w, fresh)
	}
	_ = audit.LogEvent(ctx, audit.EventPasswordChanged, map[string]any{
		"sessions_revoked": a.auth.RevocationEnabled(),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Password updated"})
}

// DELETE /api/auth
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if token := a.cookies.sessionToken(r); token != "" {
		if id, ok := a.auth.Whoami(ctx, token); ok {
			ctx = auth.ContextWithIdentity(ctx, id)
		}
	}
	a.cookies.clearSession(w)
	a.cookies.clearLegacy(w)
	if err := audit.LogEvent(ctx, audit.EventLogout, nil); err != nil {
		a.log.Warn("audit logout", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
