package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// ApiKey is an opaque bearer secret owned by a user.
// Only active keys authenticate; deactivation keeps the row and its history.
type ApiKey struct {
	ID         uuid.UUID `json:"id"`
	Key        string    `json:"key"`
	UserID     uuid.UUID `json:"userId"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"isActive"`
	LastUsedAt null.Time `json:"lastUsedAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	User *User `json:"user,omitempty"`
}

// Masked hides everything but the key prefix and last four characters
func (k *ApiKey) Masked() string {
	if len(k.Key) <= 12 {
		return "****"
	}
	return k.Key[:8] + "****" + k.Key[len(k.Key)-4:]
}

type CreateApiKeyInput struct {
	Name string `json:"name" binding:"max=100"`
}

type UpdateApiKeyInput struct {
	Name     *string `json:"name" binding:"omitempty,max=100"`
	IsActive *bool   `json:"isActive"`
}
