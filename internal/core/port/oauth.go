package port

import (
	"context"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

// GoogleFederator exchanges an authorization code for a verified, normalized
// Google profile. Any upstream failure collapses to a single generic error so
// no provider detail leaks to callers.
type GoogleFederator interface {
	ExchangeCode(ctx context.Context, code string) (*domain.GoogleProfile, error)
}
