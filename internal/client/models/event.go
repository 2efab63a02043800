package models

import "time"

// EventType enumerates identity-provider notifications.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
	EventInitialSession EventType = "INITIAL_SESSION"
)

// ProviderEvent is one notification from the identity provider. Session is
// nil for SIGNED_OUT and for INITIAL_SESSION without a persisted session.
type ProviderEvent struct {
	Type    EventType
	Session *Session
	At      time.Time
}
