package domain

import "time"

// SessionRecord is the ephemeral session entry kept in the fast store,
// keyed by a random session id with TTL equal to the refresh-token lifetime.
type SessionRecord struct {
	IdentityID string    `json:"identityId"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TokenType distinguishes the signed credential variants.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the verified payload of an access or refresh token.
type TokenClaims struct {
	IdentityID string
	Email      string
	SessionID  string
	Type       TokenType
	ExpiresAt  time.Time
}

// TokenPair bundles the credentials issued on every successful authentication.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
