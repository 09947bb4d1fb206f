package streams

import (
	"time"

	"github.com/google/uuid"

	"github.com/jimdaga/studymate/internal/auth"
)

// Stream name constants
const (
	StreamAuthEvents = "auth:events"
)

// Consumer group constants
const (
	GroupGoWorkers = "go-workers"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// AuthEvent is the wire form of an auth-state change.
type AuthEvent struct {
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	SessionID  uuid.UUID `json:"session_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FromAuthEvent converts an in-process event to its wire form.
func FromAuthEvent(ev auth.Event) AuthEvent {
	return AuthEvent{
		Type:       string(ev.Type),
		UserID:     ev.UserID,
		Email:      ev.Email,
		SessionID:  ev.SessionID,
		OccurredAt: ev.OccurredAt,
	}
}
