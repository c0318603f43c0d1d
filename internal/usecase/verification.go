package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/repository"
)

// VerifyEmail redeems a verification token. The lookup is by token hash;
// a missing row collapses to InvalidToken while a matched-but-expired row is
// distinguished as TokenExpired.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (*domain.SanitizedIdentity, error) {
	if rawToken == "" {
		return nil, domain.NewValidationError("verification token is required")
	}

	identity, err := s.identities.GetByVerificationHash(ctx, s.tokens.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewInvalidTokenError("verification token is invalid")
		}
		s.logger.Error("lookup identity by verification hash failed", zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}

	if identity.VerificationExpiresAt == nil || identity.VerificationExpiresAt.Before(s.now()) {
		return nil, domain.NewTokenExpiredError("verification token has expired")
	}

	if err := s.identities.MarkEmailVerified(ctx, identity.ID); err != nil {
		s.logger.Error("mark email verified failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}

	// Welcome email goes out on verification only when the account has
	// already signed in; first-login sends it otherwise.
	if identity.HasLoggedIn {
		s.mailer.Enqueue(port.EmailMessage{
			To:       identity.Email,
			Template: "welcome",
			Data:     map[string]any{"email": identity.Email},
		})
	}

	identity.IsEmailVerified = true
	identity.EmailVerificationHash = nil
	identity.VerificationExpiresAt = nil
	sanitized := identity.Sanitize()
	return &sanitized, nil
}

// ResendVerification issues a fresh verification token subject to the resend
// cooldown.
func (s *AuthService) ResendVerification(ctx context.Context, identityID string) error {
	if identityID == "" {
		return domain.NewValidationError("identity id is required")
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewAuthenticationError("account no longer exists")
		}
		s.logger.Error("lookup identity failed", zap.Error(err))
		return domain.NewDatabaseError(err)
	}

	if identity.IsEmailVerified {
		return domain.NewValidationError("email is already verified")
	}

	status, err := s.lockout.CheckEmailResend(ctx, identity.ID)
	if err != nil {
		s.logger.Error("check email resend cooldown failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return domain.NewDatabaseError(err)
	}
	if !status.CanResend {
		retryAfter := time.Minute
		if status.NextAllowedAt != nil {
			retryAfter = status.NextAllowedAt.Sub(s.now())
		}
		return domain.NewRateLimitError(
			fmt.Sprintf("please wait %d seconds before requesting another email", int(retryAfter.Seconds())+1),
			retryAfter,
		)
	}

	rawToken, err := s.tokens.GenerateRandomToken()
	if err != nil {
		s.logger.Error("generate verification token failed", zap.Error(err))
		return domain.NewDatabaseError(err)
	}
	expiresAt := s.now().UTC().Add(verificationTokenTTL)

	if err := s.identities.SetVerificationToken(ctx, identity.ID, s.tokens.HashToken(rawToken), expiresAt); err != nil {
		s.logger.Error("persist verification token failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return domain.NewDatabaseError(err)
	}

	s.mailer.Enqueue(port.EmailMessage{
		To:       identity.Email,
		Template: "email-verification",
		Data: map[string]any{
			"token":     rawToken,
			"expiresAt": expiresAt.Format(time.RFC3339),
		},
	})
	return nil
}
