package usecase

import (
	"context"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/logger"
)

const eventPublishTimeout = 5 * time.Second

// Event publication is observability plumbing: failures are logged, never
// surfaced into the auth flow that triggered them.

func (s *AuthService) publishUserRegistered(identity *domain.Identity, method string) {
	event := domain.UserRegisteredEvent{
		EventID:            uuid.NewString(),
		IdentityID:         identity.ID,
		Email:              identity.Email,
		RegisteredAt:       identity.CreatedAt,
		RegistrationMethod: method,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.events.PublishUserRegistered(ctx, event); err != nil {
			s.logger.Warn("publish user registered event failed",
				zap.String("identity_id", identity.ID), zap.Error(err))
		}
	}()
}

func (s *AuthService) publishPasswordChanged(identityID, changedBy string) {
	event := domain.PasswordChangedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identityID,
		ChangedAt:  s.now().UTC(),
		ChangedBy:  changedBy,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event failed",
				zap.String("identity_id", identityID), zap.Error(err))
		}
	}()
}

func (s *AuthService) publishPasswordResetRequested(identity *domain.Identity, expiresAt time.Time) {
	event := domain.PasswordResetRequestedEvent{
		EventID:           uuid.NewString(),
		IdentityID:        identity.ID,
		RequestedAt:       s.now().UTC(),
		MaskedDestination: logger.MaskEmail(identity.Email),
		ExpiresAt:         expiresAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
			s.logger.Warn("publish password reset requested event failed",
				zap.String("identity_id", identity.ID), zap.Error(err))
		}
	}()
}

func (s *AuthService) publishSessionRevoked(ctx context.Context, identityID string, removed int) {
	event := domain.SessionRevokedEvent{
		EventID:         uuid.NewString(),
		IdentityID:      identityID,
		SessionsRemoved: removed,
		RevokedAt:       s.now().UTC(),
		Reason:          "revoke_all",
	}
	go func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.events.PublishSessionRevoked(publishCtx, event); err != nil {
			s.logger.Warn("publish session revoked event failed",
				zap.String("identity_id", identityID), zap.Error(err))
		}
	}()
}
