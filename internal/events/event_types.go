package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventTokenRejected  EventType = "token_rejected"
)

// Event is a non-sensitive audit record. It never carries tokens, passwords or raw claims.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID int64     `json:"subject_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// LoginSucceededPayload describes the issued token without its value.
type LoginSucceededPayload struct {
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Abilities int       `json:"abilities"`
}

// LoginFailedPayload records why a login was refused.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// TokenRejectedPayload records where a rejected bearer token was presented.
type TokenRejectedPayload struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}
