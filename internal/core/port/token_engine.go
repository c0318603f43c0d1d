package port

import (
	"context"
	"time"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

// TokenEngine signs and verifies the paired access/refresh credentials and
// produces the opaque random tokens used by verification and reset flows.
//
// Issuance performs its session bookkeeping (session record plus
// refresh-token shadow copy) as non-blocking best-effort writes: a fast-store
// outage degrades revocation tracking but never fails issuance.
type TokenEngine interface {
	GenerateAccessToken(ctx context.Context, identityID, email string) (string, error)
	GenerateRefreshToken(ctx context.Context, identityID, email string) (string, error)
	VerifyAccessToken(ctx context.Context, token string) (*domain.TokenClaims, error)
	VerifyRefreshToken(ctx context.Context, token string) (*domain.TokenClaims, error)

	GenerateRandomToken() (string, error)
	HashToken(token string) string

	// RevokeToken blacklists a structurally decodable token for its remaining
	// lifetime; already-expired tokens are a no-op.
	RevokeToken(ctx context.Context, token string) error
	// RevokeAllUserTokens removes every live session and refresh-token shadow
	// for the identity and returns the number of sessions removed.
	RevokeAllUserTokens(ctx context.Context, identityID string) (int, error)

	RefreshTokenTTL() time.Duration
}
