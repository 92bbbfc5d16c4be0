package entities

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents user roles
type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

// Valid reports whether r is a known role
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

// User represents an API consumer. Quota is accounted per user across all of its keys.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	MonthlyLimit int64     `json:"monthlyLimit"`
	IsVerified   bool      `json:"isVerified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	Email        string   `json:"email" binding:"required,email"`
	Name         string   `json:"name" binding:"required,min=2,max=100"`
	Password     string   `json:"password" binding:"omitempty,min=8"`
	MonthlyLimit *int64   `json:"monthlyLimit" binding:"omitempty,min=0"`
	Role         UserRole `json:"role"`
	KeyName      string   `json:"keyName"`
}

// UpdateUserInput carries the admin-editable user fields; nil means unchanged
type UpdateUserInput struct {
	MonthlyLimit *int64    `json:"monthlyLimit" binding:"omitempty,min=0"`
	Role         *UserRole `json:"role"`
	IsVerified   *bool     `json:"isVerified"`
	ResetUsage   bool      `json:"resetUsage"`
}

// CreateUserResponse returns the new user with its default key
type CreateUserResponse struct {
	User   *User   `json:"user"`
	ApiKey *ApiKey `json:"apiKey"`
}

// UserWithUsage is a user row enriched with the current period's consumption
type UserWithUsage struct {
	User
	ApiKeys   []*ApiKey `json:"apiKeys"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
	Period    Period    `json:"period"`
}
