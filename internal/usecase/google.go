package usecase

import (
	"context"
	"errors"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/repository"
)

// GoogleLogin exchanges the authorization code, resolves or creates the local
// identity for the verified profile, and issues a token pair.
func (s *AuthService) GoogleLogin(ctx context.Context, code string) (*AuthResult, error) {
	if code == "" {
		return nil, domain.NewValidationError("authorization code is required")
	}

	profile, err := s.google.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	identity, isNew, err := s.findOrCreateGoogleIdentity(ctx, profile)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.recordLogin(ctx, identity, tokens.RefreshToken); err != nil {
		return nil, err
	}

	identity.HasLoggedIn = true
	return &AuthResult{
		Identity:     identity.Sanitize(),
		Tokens:       *tokens,
		IsNewUser:    isNew,
		RequiresStep: identity.OnboardingStep,
	}, nil
}

// findOrCreateGoogleIdentity maps a verified profile onto a local identity.
// A local-password account with the same email is never silently merged; the
// caller is told to use password login instead.
func (s *AuthService) findOrCreateGoogleIdentity(ctx context.Context, profile *domain.GoogleProfile) (*domain.Identity, bool, error) {
	identity, err := s.identities.GetByEmail(ctx, profile.Email)
	if err == nil {
		if identity.AuthProvider == domain.ProviderLocal {
			return nil, false, domain.NewAuthenticationError("this email is registered with a password; use password login")
		}
		if identity.GoogleID == nil || *identity.GoogleID == "" {
			if err := s.identities.AttachGoogleID(ctx, identity.ID, profile.ProviderUserID); err != nil {
				s.logger.Error("attach google id failed",
					zap.String("identity_id", identity.ID), zap.Error(err))
				return nil, false, domain.NewDatabaseError(err)
			}
			googleID := profile.ProviderUserID
			identity.GoogleID = &googleID
		}
		return identity, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("lookup identity by email failed", zap.Error(err))
		return nil, false, domain.NewDatabaseError(err)
	}

	now := s.now().UTC()
	googleID := profile.ProviderUserID
	created := domain.Identity{
		ID:              uuid.NewString(),
		Email:           profile.Email,
		AuthProvider:    domain.ProviderGoogle,
		GoogleID:        &googleID,
		IsEmailVerified: profile.EmailVerified,
		OnboardingStep:  0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.identities.Create(ctx, created); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, false, domain.NewUniqueConstraintError("account already exists", err)
		}
		s.logger.Error("create federated identity failed", zap.Error(err))
		return nil, false, domain.NewDatabaseError(err)
	}

	s.publishUserRegistered(&created, "google")
	return &created, true, nil
}
