package domain

import (
	"net/mail"
	"strings"
	"time"
)

// AuthProvider enumerates supported credential origins.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// Identity mirrors the persisted representation in the identities table.
// Verification and reset token columns hold SHA-256 hashes of the tokens
// handed to the user, never the raw values.
type Identity struct {
	ID                     string
	Email                  string
	PasswordHash           *string
	AuthProvider           AuthProvider
	GoogleID               *string
	IsEmailVerified        bool
	EmailVerificationHash  *string
	VerificationExpiresAt  *time.Time
	PasswordResetHash      *string
	ResetExpiresAt         *time.Time
	RefreshToken           *string
	LoginAttempts          int
	LockedUntil            *time.Time
	HasLoggedIn            bool
	HasCompletedOnboarding bool
	OnboardingStep         int
	LastLogin              *time.Time
	PasswordChangedAt      *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// IsLocked reports whether a lockout window is active at the supplied moment.
func (i Identity) IsLocked(at time.Time) bool {
	return i.LockedUntil != nil && i.LockedUntil.After(at)
}

// HasPassword reports whether a local password credential is usable.
func (i Identity) HasPassword() bool {
	return i.PasswordHash != nil && *i.PasswordHash != ""
}

// SanitizedIdentity is the caller-safe projection of an Identity: no hashes,
// no token material, no security counters.
type SanitizedIdentity struct {
	ID                     string       `json:"id"`
	Email                  string       `json:"email"`
	AuthProvider           AuthProvider `json:"authProvider"`
	IsEmailVerified        bool         `json:"isEmailVerified"`
	HasLoggedIn            bool         `json:"hasLoggedIn"`
	HasCompletedOnboarding bool         `json:"hasCompletedOnboarding"`
	OnboardingStep         int          `json:"onboardingStep"`
	LastLogin              *time.Time   `json:"lastLogin,omitempty"`
	CreatedAt              time.Time    `json:"createdAt"`
}

// Sanitize strips all secret material from an identity.
func (i Identity) Sanitize() SanitizedIdentity {
	return SanitizedIdentity{
		ID:                     i.ID,
		Email:                  i.Email,
		AuthProvider:           i.AuthProvider,
		IsEmailVerified:        i.IsEmailVerified,
		HasLoggedIn:            i.HasLoggedIn,
		HasCompletedOnboarding: i.HasCompletedOnboarding,
		OnboardingStep:         i.OnboardingStep,
		LastLogin:              i.LastLogin,
		CreatedAt:              i.CreatedAt,
	}
}

const maxEmailLength = 255

// NormalizeEmail lowercases and trims an address for case-insensitive storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks format and length limits on a normalized address.
func ValidateEmail(email string) error {
	if email == "" {
		return NewValidationError("email is required")
	}
	if len(email) > maxEmailLength {
		return NewValidationError("email exceeds maximum length")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewValidationError("email format is invalid")
	}
	return nil
}

// GoogleProfile is the normalized identity assertion extracted from a verified
// provider ID token.
type GoogleProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	GivenName      string
	FamilyName     string
	AvatarURL      string
}
