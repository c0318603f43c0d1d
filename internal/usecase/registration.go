package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/repository"
)

// Register creates a local identity, issues its first token pair, and
// dispatches the verification email fire-and-forget.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	strength := s.policy.ValidateStrength(password)
	if !strength.IsValid {
		return nil, domain.NewValidationError(strings.Join(strength.Errors, "; "))
	}

	if _, err := s.identities.GetByEmail(ctx, email); err == nil {
		return nil, domain.NewConflictError("email is already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("lookup identity by email failed", zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}

	rawVerification, err := s.tokens.GenerateRandomToken()
	if err != nil {
		s.logger.Error("generate verification token failed", zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}
	verificationHash := s.tokens.HashToken(rawVerification)
	verificationExpiry := s.now().UTC().Add(verificationTokenTTL)

	now := s.now().UTC()
	identity := domain.Identity{
		ID:                    uuid.NewString(),
		Email:                 email,
		PasswordHash:          &passwordHash,
		AuthProvider:          domain.ProviderLocal,
		EmailVerificationHash: &verificationHash,
		VerificationExpiresAt: &verificationExpiry,
		OnboardingStep:        0,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			// Lost a race on email with a concurrent registration.
			return nil, domain.NewUniqueConstraintError("email is already registered", err)
		}
		s.logger.Error("create identity failed", zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}

	tokens, err := s.issueTokens(ctx, &identity)
	if err != nil {
		return nil, err
	}
	if err := s.recordLogin(ctx, &identity, tokens.RefreshToken); err != nil {
		return nil, err
	}

	s.mailer.Enqueue(port.EmailMessage{
		To:       identity.Email,
		Template: "email-verification",
		Data: map[string]any{
			"token":     rawVerification,
			"expiresAt": verificationExpiry.Format(time.RFC3339),
		},
	})
	s.publishUserRegistered(&identity, "password")

	identity.HasLoggedIn = true
	return &AuthResult{
		Identity:     identity.Sanitize(),
		Tokens:       *tokens,
		IsNewUser:    true,
		RequiresStep: identity.OnboardingStep,
	}, nil
}
