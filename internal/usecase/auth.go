package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/logger"
	"github.com/AudereSemper/kokoru-garden-api/internal/repository"
)

const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour

	enumerationDelayMin = 50 * time.Millisecond
	enumerationDelayMax = 150 * time.Millisecond
)

// AuthResult is the common success payload of the authentication flows.
type AuthResult struct {
	Identity     domain.SanitizedIdentity `json:"user"`
	Tokens       domain.TokenPair         `json:"tokens"`
	IsNewUser    bool                     `json:"isNewUser,omitempty"`
	RequiresStep int                      `json:"onboardingStep"`
}

// AuthService orchestrates the credential lifecycle: registration, login,
// verification, password reset, refresh, logout and Google federation. It
// owns every cross-component invariant and all failure policy.
type AuthService struct {
	identities port.IdentityRepository
	tokens     port.TokenEngine
	hasher     port.PasswordHasher
	policy     port.PasswordPolicy
	lockout    port.LockoutGuard
	google     port.GoogleFederator
	mailer     port.EmailDispatcher
	events     port.EventPublisher
	logger     *zap.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewAuthService constructs the orchestrator.
func NewAuthService(
	identities port.IdentityRepository,
	tokens port.TokenEngine,
	hasher port.PasswordHasher,
	policy port.PasswordPolicy,
	lockout port.LockoutGuard,
	google port.GoogleFederator,
	mailer port.EmailDispatcher,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		tokens:     tokens,
		hasher:     hasher,
		policy:     policy,
		lockout:    lockout,
		google:     google,
		mailer:     mailer,
		events:     events,
		logger:     log,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// WithClock overrides the time source for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// WithSleep overrides the delay function for tests.
func (s *AuthService) WithSleep(sleep func(time.Duration)) *AuthService {
	s.sleep = sleep
	return s
}

// enumerationDelay inserts a 50-150ms randomized pause. It runs identically on
// the "email not found" and "found but failing" paths so response timing does
// not reveal account existence.
func (s *AuthService) enumerationDelay() {
	spread := int64(enumerationDelayMax - enumerationDelayMin)
	s.sleep(enumerationDelayMin + time.Duration(rand.Int63n(spread)))
}

// Login authenticates a local identity against its password and issues a
// fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, domain.NewValidationError("password is required")
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.enumerationDelay()
			return nil, domain.NewAuthenticationError("invalid email or password")
		}
		s.logger.Error("lookup identity by email failed", zap.Error(err))
		s.enumerationDelay()
		return nil, domain.NewDatabaseError(err)
	}

	if identity.AuthProvider == domain.ProviderGoogle && !identity.HasPassword() {
		return nil, domain.NewAuthenticationError("this account uses Google sign-in")
	}

	now := s.now()
	if identity.IsLocked(now) {
		return nil, domain.NewAccountLockedError(*identity.LockedUntil, now)
	}

	if !s.hasher.Verify(derefString(identity.PasswordHash), password) {
		return nil, s.handleFailedLogin(ctx, identity)
	}

	tokens, err := s.issueTokens(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := s.lockout.ResetLoginAttempts(ctx, identity.ID); err != nil {
		s.logger.Warn("reset login attempts failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
	}
	if identity.LoginAttempts > 0 || identity.LockedUntil != nil {
		if err := s.identities.ClearLockout(ctx, identity.ID); err != nil {
			s.logger.Warn("clear lockout failed",
				zap.String("identity_id", identity.ID), zap.Error(err))
		}
	}

	firstLogin := !identity.HasLoggedIn
	if err := s.recordLogin(ctx, identity, tokens.RefreshToken); err != nil {
		return nil, err
	}

	if firstLogin && identity.IsEmailVerified {
		s.mailer.Enqueue(port.EmailMessage{
			To:       identity.Email,
			Template: "welcome",
			Data:     map[string]any{"email": identity.Email},
		})
	}

	identity.HasLoggedIn = true
	return &AuthResult{
		Identity:     identity.Sanitize(),
		Tokens:       *tokens,
		RequiresStep: identity.OnboardingStep,
	}, nil
}

// handleFailedLogin runs the failure path of a password mismatch: atomic
// counter increments in both stores, lockout persistence when the threshold
// is crossed, and a deliberately generic error otherwise.
func (s *AuthService) handleFailedLogin(ctx context.Context, identity *domain.Identity) error {
	if _, err := s.identities.IncrementLoginAttempts(ctx, identity.ID); err != nil {
		s.logger.Error("increment login attempts failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
	}

	count, err := s.lockout.RecordFailedLogin(ctx, identity.ID)
	if err != nil {
		s.logger.Error("record failed login failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return domain.NewAuthenticationError("invalid email or password")
	}

	status, err := s.lockout.CheckLoginAttempts(ctx, identity.ID)
	if err != nil {
		s.logger.Error("check login attempts failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return domain.NewAuthenticationError("invalid email or password")
	}

	if !status.CanAttempt && status.LockedUntil != nil {
		if err := s.identities.SetLockedUntil(ctx, identity.ID, *status.LockedUntil); err != nil {
			s.logger.Error("persist lockout failed",
				zap.String("identity_id", identity.ID), zap.Error(err))
		}
		s.logger.Warn("account locked after repeated failures",
			zap.String("identity_id", identity.ID),
			zap.String("email", logger.MaskEmail(identity.Email)),
			zap.Int("failures", count),
		)
		return domain.NewAccountLockedError(*status.LockedUntil, s.now())
	}

	return domain.NewAuthenticationError("invalid email or password")
}

// Refresh verifies the refresh token, cross-checks it against the stored
// single-slot value, and issues a fresh pair. The old refresh token is
// invalidated by being overwritten.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.NewValidationError("refresh token is required")
	}

	claims, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	// Look up by the stored token value, not by id: a token that verifies but
	// is no longer the stored slot has been superseded or revoked.
	identity, err := s.identities.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewInvalidTokenError("refresh token is no longer valid")
		}
		s.logger.Error("lookup identity by refresh token failed", zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}

	if identity.ID != claims.IdentityID {
		return nil, domain.NewInvalidTokenError("refresh token does not match its identity")
	}

	tokens, err := s.issueTokens(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.identities.SetRefreshToken(ctx, identity.ID, &tokens.RefreshToken); err != nil {
		s.logger.Error("persist rotated refresh token failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}

	return &AuthResult{
		Identity:     identity.Sanitize(),
		Tokens:       *tokens,
		RequiresStep: identity.OnboardingStep,
	}, nil
}

// Logout clears the stored refresh token. Outstanding access tokens stay
// valid until natural expiry unless explicitly revoked.
func (s *AuthService) Logout(ctx context.Context, identityID string) error {
	if identityID == "" {
		return domain.NewValidationError("identity id is required")
	}

	if err := s.identities.SetRefreshToken(ctx, identityID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		s.logger.Error("clear refresh token failed",
			zap.String("identity_id", identityID), zap.Error(err))
		return domain.NewDatabaseError(err)
	}
	return nil
}

// GetCurrentUser returns the sanitized identity for an authenticated caller.
func (s *AuthService) GetCurrentUser(ctx context.Context, identityID string) (*domain.SanitizedIdentity, error) {
	if identityID == "" {
		return nil, domain.NewValidationError("identity id is required")
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewAuthenticationError("account no longer exists")
		}
		s.logger.Error("lookup identity failed", zap.Error(err))
		return nil, domain.NewDatabaseError(err)
	}

	sanitized := identity.Sanitize()
	return &sanitized, nil
}

// RevokeAllSessions removes every live session for the identity and publishes
// a session-revoked event.
func (s *AuthService) RevokeAllSessions(ctx context.Context, identityID string) (int, error) {
	if identityID == "" {
		return 0, domain.NewValidationError("identity id is required")
	}

	removed, err := s.tokens.RevokeAllUserTokens(ctx, identityID)
	if err != nil {
		s.logger.Error("revoke all sessions failed",
			zap.String("identity_id", identityID), zap.Error(err))
		return 0, domain.NewDatabaseError(err)
	}

	if err := s.identities.SetRefreshToken(ctx, identityID, nil); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("clear refresh token after revocation failed",
			zap.String("identity_id", identityID), zap.Error(err))
	}

	s.publishSessionRevoked(ctx, identityID, removed)
	return removed, nil
}

// issueTokens mints the access/refresh pair. Session bookkeeping inside the
// engine is best-effort and never fails issuance.
func (s *AuthService) issueTokens(ctx context.Context, identity *domain.Identity) (*domain.TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(ctx, identity.ID, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(ctx, identity.ID, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// recordLogin persists the refresh token slot and login stamps.
func (s *AuthService) recordLogin(ctx context.Context, identity *domain.Identity, refreshToken string) error {
	if err := s.identities.SetRefreshToken(ctx, identity.ID, &refreshToken); err != nil {
		s.logger.Error("persist refresh token failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
		return domain.NewDatabaseError(err)
	}
	if err := s.identities.MarkLoggedIn(ctx, identity.ID, s.now().UTC()); err != nil {
		s.logger.Warn("mark logged in failed",
			zap.String("identity_id", identity.ID), zap.Error(err))
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
