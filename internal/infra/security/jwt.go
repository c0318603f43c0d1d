package security

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
)

const (
	defaultAccessTokenTTL  = time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour

	// Budget for the detached best-effort session bookkeeping writes.
	sessionWriteTimeout = 3 * time.Second
)

// TokenConfig holds the signing material and lifetimes for the paired
// access/refresh credentials. Access and refresh secrets are independent so a
// leaked access secret cannot mint refresh tokens.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

var lifetimePattern = regexp.MustCompile(`^(\d+)([smhdw])$`)

// ParseLifetime normalizes a configured token lifetime: a pure-digit string
// is seconds, a digits+unit suffix (s/m/h/d/w) is a relative duration, and
// anything else falls back to one hour with a warning.
func ParseLifetime(raw string, logger *zap.Logger) time.Duration {
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	if m := lifetimePattern.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		var unit time.Duration
		switch m[2] {
		case "s":
			unit = time.Second
		case "m":
			unit = time.Minute
		case "h":
			unit = time.Hour
		case "d":
			unit = 24 * time.Hour
		case "w":
			unit = 7 * 24 * time.Hour
		}
		if n > 0 {
			return time.Duration(n) * unit
		}
	}

	if logger != nil {
		logger.Warn("unrecognized token lifetime, falling back to 1h", zap.String("value", raw))
	}
	return time.Hour
}

type signedClaims struct {
	IdentityID string `json:"uid"`
	Email      string `json:"email,omitempty"`
	SessionID  string `json:"sid"`
	TokenType  string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed access/refresh tokens and
// owns the revocation bookkeeping against the session store.
type TokenService struct {
	cfg      TokenConfig
	sessions port.SessionStore
	logger   *zap.Logger
	now      func() time.Time
}

var _ port.TokenEngine = (*TokenService)(nil)

// NewTokenService validates the signing material and applies TTL defaults.
func NewTokenService(cfg TokenConfig, sessions port.SessionStore, logger *zap.Logger) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("token secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("token issuer is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTokenTTL
	}

	return &TokenService{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// WithClock overrides the time source for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// RefreshTokenTTL returns the configured refresh-token lifetime.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.cfg.RefreshTTL
}

// GenerateAccessToken signs a new access token carrying a fresh session id.
// The session record write is detached and best-effort: a fast-store outage
// degrades revocation tracking, never issuance.
func (s *TokenService) GenerateAccessToken(ctx context.Context, identityID, email string) (string, error) {
	sessionID := uuid.NewString()
	token, err := s.sign(identityID, email, sessionID, domain.TokenTypeAccess, s.cfg.AccessSecret, s.cfg.AccessTTL, true)
	if err != nil {
		return "", err
	}

	record := domain.SessionRecord{IdentityID: identityID, Email: email, CreatedAt: s.now().UTC()}
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), sessionWriteTimeout)
		defer cancel()
		if err := s.sessions.SaveSession(writeCtx, sessionID, record, s.cfg.RefreshTTL); err != nil {
			s.logger.Warn("persist session record failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}()

	return token, nil
}

// GenerateRefreshToken signs a new refresh token and shadows the signed value
// under its session id for revocation fan-out (best-effort, detached).
func (s *TokenService) GenerateRefreshToken(ctx context.Context, identityID, email string) (string, error) {
	sessionID := uuid.NewString()
	token, err := s.sign(identityID, email, sessionID, domain.TokenTypeRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTTL, false)
	if err != nil {
		return "", err
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), sessionWriteTimeout)
		defer cancel()
		if err := s.sessions.SaveRefreshToken(writeCtx, sessionID, token, s.cfg.RefreshTTL); err != nil {
			s.logger.Warn("persist refresh token shadow failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}()

	return token, nil
}

func (s *TokenService) sign(identityID, email, sessionID string, tokenType domain.TokenType, secret string, ttl time.Duration, withAudience bool) (string, error) {
	if identityID == "" {
		return "", fmt.Errorf("identity id is required")
	}

	now := s.now().UTC()
	claims := signedClaims{
		IdentityID: identityID,
		Email:      email,
		SessionID:  sessionID,
		TokenType:  string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if withAudience && s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature, issuer, audience and expiry, then
// rejects blacklisted tokens. A blacklist read failure is logged but does not
// block verification.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims, err := s.verify(token, s.cfg.AccessSecret, domain.TokenTypeAccess, true)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.sessions.IsTokenBlacklisted(ctx, HashToken(token))
	if err != nil {
		s.logger.Warn("blacklist lookup failed", zap.Error(err))
	} else if blacklisted {
		return nil, domain.NewInvalidTokenError("token has been revoked")
	}

	return claims, nil
}

// VerifyRefreshToken checks signature, issuer and expiry; no audience claim
// is expected on refresh tokens. Callers must re-fetch identity state rather
// than trust the embedded email.
func (s *TokenService) VerifyRefreshToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	return s.verify(token, s.cfg.RefreshSecret, domain.TokenTypeRefresh, false)
}

func (s *TokenService) verify(token, secret string, expected domain.TokenType, withAudience bool) (*domain.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
	}
	if withAudience && s.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience))
	}

	var claims signedClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.NewTokenExpiredError("token has expired")
		}
		return nil, domain.NewInvalidTokenError("token is invalid")
	}

	if claims.TokenType != string(expected) {
		return nil, domain.NewInvalidTokenError("unexpected token type")
	}
	if claims.IdentityID == "" || claims.SessionID == "" {
		return nil, domain.NewInvalidTokenError("token is missing required claims")
	}

	return &domain.TokenClaims{
		IdentityID: claims.IdentityID,
		Email:      claims.Email,
		SessionID:  claims.SessionID,
		Type:       expected,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// RevokeToken blacklists a token for its remaining natural lifetime. Only a
// structural decode is required so tokens with since-rotated secrets can
// still be revoked; already-expired tokens are a no-op.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	var claims signedClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return domain.NewInvalidTokenError("token is malformed")
	}
	if claims.ExpiresAt == nil {
		return domain.NewInvalidTokenError("token is missing expiry")
	}

	remaining := claims.ExpiresAt.Time.Sub(s.now().UTC())
	if remaining <= 0 {
		return nil
	}

	if err := s.sessions.BlacklistToken(ctx, HashToken(token), remaining); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// RevokeAllUserTokens removes every live session record and refresh-token
// shadow for the identity. Cost is linear in live sessions system-wide;
// acceptable because sessions are bounded by active users and short TTLs.
func (s *TokenService) RevokeAllUserTokens(ctx context.Context, identityID string) (int, error) {
	removed, err := s.sessions.RevokeAllSessions(ctx, identityID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	return removed, nil
}
