package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"

	jwksCacheTTL   = time.Hour
	exchangeBudget = 10 * time.Second
)

var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// GoogleConfig holds the OAuth client registration. RedirectURL is the single
// source of truth for the redirect URI; it must exactly match what the client
// used when obtaining the authorization code.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Overridable for tests.
	TokenURL string
	JWKSURL  string
}

// GoogleAdapter exchanges authorization codes with Google and verifies the
// returned ID token against Google's published signing keys.
type GoogleAdapter struct {
	oauth      oauth2.Config
	jwksURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	keys        map[string]*rsa.PublicKey
	keysFetched time.Time
}

var _ port.GoogleFederator = (*GoogleAdapter)(nil)

// NewGoogleAdapter validates the client registration and builds the adapter.
func NewGoogleAdapter(cfg GoogleConfig, logger *zap.Logger) (*GoogleAdapter, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google client id and secret are required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("google redirect url is required")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = googleJWKSURL
	}

	return &GoogleAdapter{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: tokenURL,
			},
		},
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: exchangeBudget},
		logger:     logger,
	}, nil
}

// ExchangeCode swaps the authorization code for provider tokens and returns
// the verified, normalized profile. Every upstream failure collapses to one
// generic error; the detail is only logged.
func (a *GoogleAdapter) ExchangeCode(ctx context.Context, code string) (*domain.GoogleProfile, error) {
	if code == "" {
		return nil, federationFailed()
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, exchangeBudget)
	defer cancel()
	exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, a.httpClient)

	token, err := a.oauth.Exchange(exchangeCtx, code)
	if err != nil {
		a.logger.Warn("google code exchange failed", zap.Error(err))
		return nil, federationFailed()
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		a.logger.Warn("google token response missing id_token")
		return nil, federationFailed()
	}

	profile, err := a.verifyIDToken(ctx, rawIDToken)
	if err != nil {
		a.logger.Warn("google id token verification failed", zap.Error(err))
		return nil, federationFailed()
	}

	return profile, nil
}

func federationFailed() error {
	return domain.NewAuthenticationError("federated authentication failed")
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

func (a *GoogleAdapter) verifyIDToken(ctx context.Context, rawToken string) (*domain.GoogleProfile, error) {
	var claims idTokenClaims
	_, err := jwt.ParseWithClaims(rawToken, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("id token missing kid header")
		}
		return a.verificationKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(a.oauth.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("parse id token: %w", err)
	}

	issuerOK := false
	for _, issuer := range googleIssuers {
		if claims.Issuer == issuer {
			issuerOK = true
			break
		}
	}
	if !issuerOK {
		return nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("id token missing subject")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("id token missing email")
	}

	return &domain.GoogleProfile{
		ProviderUserID: claims.Subject,
		Email:          domain.NormalizeEmail(claims.Email),
		EmailVerified:  claims.EmailVerified,
		GivenName:      claims.GivenName,
		FamilyName:     claims.FamilyName,
		AvatarURL:      claims.Picture,
	}, nil
}

// verificationKey returns the RSA key for the kid, refreshing the cached JWKS
// when the kid is unknown or the cache is stale.
func (a *GoogleAdapter) verificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if key, ok := a.keys[kid]; ok && time.Since(a.keysFetched) < jwksCacheTTL {
		return key, nil
	}

	keys, err := a.fetchJWKS(ctx)
	if err != nil {
		return nil, err
	}
	a.keys = keys
	a.keysFetched = time.Now()

	key, ok := a.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no key for kid %q", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (a *GoogleAdapter) fetchJWKS(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read jwks body: %w", err)
	}

	var doc jwksDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks contained no usable keys")
	}

	return keys, nil
}
