package model

import (
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Roles is the closed set an administrator may assign.
var Roles = []string{RoleUser, RoleModerator, RoleAdmin}

func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SessionUser is the profile returned by GET /auth/me.
type SessionUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// IsStaff reports whether the user may moderate content and manage users.
func (u *SessionUser) IsStaff() bool {
	if u == nil {
		return false
	}
	role := strings.ToLower(strings.TrimSpace(u.Role))
	return role == RoleAdmin || role == RoleModerator
}

func (u *SessionUser) DisplayName() string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Email
}

type UserRecord struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type UserUpdate struct {
	FullName *string `json:"full_name"`
	Role     string  `json:"role"`
}
