package auth

import (
	"strings"
	"time"
)

// Role is a privilege level. The set is closed: admin, editor, viewer.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// DefaultRole is assigned to accounts created without an explicit role.
const DefaultRole = RoleEditor

// Roles lists every valid role, most privileged first.
var Roles = []Role{RoleAdmin, RoleEditor, RoleViewer}

// ParseRole maps raw input onto a Role. Anything unknown or empty becomes
// RoleViewer so a malformed claim can never widen access.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleEditor:
		return RoleEditor
	default:
		return RoleViewer
	}
}

// IsValidRole reports whether r is one of the three known roles.
func IsValidRole(r Role) bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// User is a persisted account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	DepartmentID *string   `json:"departmentId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity returns the trust context derived from the stored account.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// Identity is the verified caller attached to a single request.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}
