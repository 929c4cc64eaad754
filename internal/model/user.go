// Package model defines the data structures shared by the client and the server.
package model

import (
	"strings"
	"time"
)

// Role separates ordinary members from administrators, who approve field submissions.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole normalises the letter case; unknown roles come back as "".
func ParseRole(s string) Role {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return ""
	}
	return r
}

// User represents a registered account.
//
// PasswordHash is tagged json:"-" so that a User can never leak its hash
// through an API response, even if a handler encodes the whole struct.
type User struct {
	ID           string    `json:"userId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
