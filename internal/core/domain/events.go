package domain

import "time"

// UserRegisteredEvent represents the payload for garden.user.registered messages.
type UserRegisteredEvent struct {
	EventID            string
	IdentityID         string
	Email              string
	RegisteredAt       time.Time
	RegistrationMethod string
	Metadata           map[string]any
}

// PasswordChangedEvent represents the payload for garden.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID    string
	IdentityID string
	ChangedAt  time.Time
	ChangedBy  string
	Metadata   map[string]any
}

// PasswordResetRequestedEvent represents the payload for garden.user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	IdentityID        string
	RequestedAt       time.Time
	MaskedDestination string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// SessionRevokedEvent represents the payload for garden.session.revoked messages.
type SessionRevokedEvent struct {
	EventID         string
	IdentityID      string
	SessionsRemoved int
	RevokedAt       time.Time
	Reason          string
	Metadata        map[string]any
}
