package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/logger"
	"github.com/AudereSemper/kokoru-garden-api/internal/repository"
)

// ForgotPassword always reports success, whether or not the email exists, so
// the response carries no enumeration signal. Internal failures on the
// real-account path are swallowed and logged for the same reason.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("lookup identity for password reset failed", zap.Error(err))
		}
		s.enumerationDelay()
		return nil
	}

	if !identity.HasPassword() {
		// Federated accounts have no password to reset; keep the uniform
		// response.
		s.enumerationDelay()
		return nil
	}

	rawToken, err := s.tokens.GenerateRandomToken()
	if err != nil {
		s.logger.Error("generate reset token failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return nil
	}
	expiresAt := s.now().UTC().Add(resetTokenTTL)

	if err := s.identities.SetResetToken(ctx, identity.ID, s.tokens.HashToken(rawToken), expiresAt); err != nil {
		s.logger.Error("persist reset token failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return nil
	}

	s.mailer.Enqueue(port.EmailMessage{
		To:       identity.Email,
		Template: "password-reset",
		Data: map[string]any{
			"token":     rawToken,
			"expiresAt": expiresAt.Format(time.RFC3339),
		},
	})
	s.publishPasswordResetRequested(identity, expiresAt)

	s.logger.Info("password reset requested",
		zap.String("identity_id", identity.ID),
		zap.String("email", logger.MaskEmail(identity.Email)),
	)
	return nil
}

// ResetPassword redeems a reset token and installs a new password. Missing
// hash collapses to InvalidToken; a matched-but-expired token is TokenExpired.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return domain.NewValidationError("reset token is required")
	}

	strength := s.policy.ValidateStrength(newPassword)
	if !strength.IsValid {
		return domain.NewValidationError(strings.Join(strength.Errors, "; "))
	}

	identity, err := s.identities.GetByResetHash(ctx, s.tokens.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewInvalidTokenError("reset token is invalid")
		}
		s.logger.Error("lookup identity by reset hash failed", zap.Error(err))
		return domain.NewDatabaseError(err)
	}

	if identity.ResetExpiresAt == nil || identity.ResetExpiresAt.Before(s.now()) {
		return domain.NewTokenExpiredError("reset token has expired")
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return domain.NewDatabaseError(err)
	}

	// One statement: new hash, cleared reset fields, stamped change time,
	// lockout state reset.
	if err := s.identities.UpdatePassword(ctx, identity.ID, passwordHash, s.now().UTC()); err != nil {
		s.logger.Error("update password failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return domain.NewDatabaseError(err)
	}
	if err := s.lockout.ResetLoginAttempts(ctx, identity.ID); err != nil {
		s.logger.Warn("reset login attempts failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
	}

	s.mailer.Enqueue(port.EmailMessage{
		To:       identity.Email,
		Template: "password-changed",
		Data:     map[string]any{"email": identity.Email},
	})
	s.publishPasswordChanged(identity.ID, "password_reset")
	return nil
}
