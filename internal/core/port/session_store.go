package port

import (
	"context"
	"time"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

// SessionStore manages the ephemeral session artifacts in the fast store:
// session records, refresh-token shadow copies, and the access-token
// blacklist.
type SessionStore interface {
	// SaveSession writes the session record keyed by session id with the
	// supplied TTL.
	SaveSession(ctx context.Context, sessionID string, record domain.SessionRecord, ttl time.Duration) error
	// SaveRefreshToken shadows the signed refresh token under its session id
	// for revocation fan-out.
	SaveRefreshToken(ctx context.Context, sessionID string, token string, ttl time.Duration) error

	// BlacklistToken stores a revocation entry keyed by the token hash for
	// the remaining natural lifetime of the token.
	BlacklistToken(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, tokenHash string) (bool, error)

	// RevokeAllSessions scans live session records, deletes every one owned
	// by the identity together with its refresh-token shadow, and returns the
	// number removed. Linear in the number of live sessions system-wide.
	RevokeAllSessions(ctx context.Context, identityID string) (int, error)
}
