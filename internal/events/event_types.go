package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered      EventType = "user_registered"
	EventLoginSucceeded      EventType = "login_succeeded"
	EventLoginFailed         EventType = "login_failed"
	EventLoginRateLimited    EventType = "login_rate_limited"
	EventRefreshTokenRevoked EventType = "refresh_token_revoked"
)

// Event represents a security-relevant fact emitted by the auth services.
type Event struct {
	ID        string    `json:"id"` // ULID, sortable by publish time
	Type      EventType `json:"type"`
	Subject   string    `json:"subject"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Admin  bool   `json:"admin"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}
