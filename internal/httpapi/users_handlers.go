package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"forecast.kathykuohome.com/internal/audit"
	"forecast.kathykuohome.com/internal/auth"
)

type createUserRequest struct {
	Email        string  `json:"email"`
	Name         string  `json:"name"`
	Password     string  `json:"password"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"departmentId"`
}

// GET /api/users (admin only, enforced by the gate)
func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List(r.Context())
	if err != nil {
		a.internalError(w, r, "list users failed", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// POST /api/users (admin only, enforced by the gate)
func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if check := auth.ValidateEmail(req.Email, a.auth.AllowedDomain()); !check.Valid {
		writeError(w, http.StatusBadRequest, check.Error)
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}
	role := auth.DefaultRole
	if raw := strings.TrimSpace(req.Role); raw != "" {
		role = auth.Role(strings.ToLower(raw))
		if !auth.IsValidRole(role) {
			writeError(w, http.StatusBadRequest, "Invalid role")
			return
		}
	}
	var deptID *string
	if req.DepartmentID != nil && strings.TrimSpace(*req.DepartmentID) != "" {
		id := strings.TrimSpace(*req.DepartmentID)
		ok, err := a.departments.DepartmentExists(r.Context(), id)
		if err != nil {
			a.internalError(w, r, "check department failed", err)
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "Department not found")
			return
		}
		deptID = &id
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.internalError(w, r, "hash password failed", err)
		return
	}
	user := &auth.User{
		Email:        auth.NormalizeEmail(req.Email),
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		DepartmentID: deptID,
	}
	if err := a.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		a.internalError(w, r, "create user failed", err)
		return
	}

	_ = audit.LogEvent(r.Context(), audit.EventUserCreated, map[string]any{
		"target_user_id": user.ID,
		"email":          user.Email,
		"target_role":    string(user.Role),
	})
	writeJSON(w, http.StatusCreated, user)
}

// DELETE /api/users/{id} (admin only, enforced by the gate)
//
// Tokens are revoked before the row goes so a failed revocation leaves the
// account intact.
func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "ID is required")
		return
	}
	if caller, ok := auth.IdentityFromContext(r.Context()); ok && caller.UserID == id {
		writeError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	if err := a.auth.RevokeUser(r.Context(), id); err != nil {
		a.internalError(w, r, "revoke user failed", err)
		return
	}
	if err := a.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		a.internalError(w, r, "delete user failed", err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventUserDeleted, map[string]any{"target_user_id": id})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
