package port

import (
	"context"
	"time"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

// IdentityRepository exposes persistence behavior for identities. Lookups
// return repository.ErrNotFound for absent rows; they never invent a zero
// value.
type IdentityRepository interface {
	Create(ctx context.Context, identity domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.Identity, error)
	GetByVerificationHash(ctx context.Context, tokenHash string) (*domain.Identity, error)
	GetByResetHash(ctx context.Context, tokenHash string) (*domain.Identity, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Identity, error)

	// IncrementLoginAttempts is an atomic store-level increment and returns
	// the post-increment counter value.
	IncrementLoginAttempts(ctx context.Context, id string) (int, error)
	SetLockedUntil(ctx context.Context, id string, until time.Time) error
	ClearLockout(ctx context.Context, id string) error

	SetVerificationToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error

	// SetRefreshToken overwrites the single refresh-token slot; pass nil to
	// clear it on logout.
	SetRefreshToken(ctx context.Context, id string, refreshToken *string) error
	MarkLoggedIn(ctx context.Context, id string, at time.Time) error
	AttachGoogleID(ctx context.Context, id string, googleID string) error

	// BulkUpdateOnboarding applies the same onboarding state to at most 100
	// identities inside one all-or-nothing transaction.
	BulkUpdateOnboarding(ctx context.Context, ids []string, step int, completed bool) error
}
