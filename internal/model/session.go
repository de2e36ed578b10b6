package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is the lifetime of a session that is never extended.
const DefaultSessionTTL = 24 * time.Hour

// Session is a server-side login context. It is stored as JSON under session:<id>.
type Session struct {
	ID          string            `json:"session_id"`
	UserID      uuid.UUID         `json:"user_id"`
	Token       string            `json:"token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	IPAddress   string            `json:"ip_address"`
	UserAgent   string            `json:"user_agent"`
	Device      map[string]string `json:"device_info,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Terminated  bool              `json:"terminated"`
	MFAVerified bool              `json:"mfa_verified"`
}

// ClientMetadata describes the client that opens a session.
type ClientMetadata struct {
	IPAddress string
	UserAgent string
	Device    map[string]string
}

// IsLive reports whether the session can still back tokens at now.
func (s Session) IsLive(now time.Time) bool {
	return !s.Terminated && now.Before(s.ExpiresAt)
}
