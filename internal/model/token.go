package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair is returned by login and by a rotating refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshBinding is stored under refresh_token:<token>.
type RefreshBinding struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID string    `json:"session_id"`
}

// PasswordResetToken is stored under password_reset:<token>.
type PasswordResetToken struct {
	Token     string    `json:"-"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Used      bool      `json:"used"`
}
