package domain

import (
	"slices"
	"time"
)

// Role constants define the allowed user roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRoles returns the set of valid user roles.
func ValidRoles() []string {
	return []string{RoleUser, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	return slices.Contains(ValidRoles(), role)
}

// User represents a registered reader or administrator.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Bio          string    `json:"bio,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserProfile is the public view of a user with their reading list and
// reviews.
type UserProfile struct {
	*User
	ReadingList []Book   `json:"readingList"`
	Reviews     []Review `json:"reviews"`
}

// AuthToken is returned by register and login.
type AuthToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
