package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
)

const (
	defaultLoginAttemptPrefix = "auth:login_attempts"
	defaultResendPrefix       = "auth:email_resend"

	defaultMaxLoginAttempts = 5
	defaultLockoutWindow    = 15 * time.Minute
	defaultResendCooldown   = 60 * time.Second
)

// LockoutConfig tunes the failed-login and email-resend policies.
type LockoutConfig struct {
	MaxLoginAttempts int
	LockoutWindow    time.Duration
	ResendCooldown   time.Duration
	KeyPrefix        string
}

// LockoutRepository enforces the per-identity lockout and resend-cooldown
// policies against Redis. Counters self-expire, so there is no cleanup job.
type LockoutRepository struct {
	client *red.Client
	cfg    LockoutConfig
	now    func() time.Time
}

var _ port.LockoutGuard = (*LockoutRepository)(nil)

// NewLockoutRepository constructs a guard with defaults applied for unset
// fields: 5 attempts per 15 minutes, 60 second resend cooldown.
func NewLockoutRepository(client *red.Client, cfg LockoutConfig) *LockoutRepository {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = defaultMaxLoginAttempts
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = defaultLockoutWindow
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = defaultResendCooldown
	}
	return &LockoutRepository{client: client, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source for tests.
func (r *LockoutRepository) WithClock(now func() time.Time) *LockoutRepository {
	r.now = now
	return r
}

// CheckLoginAttempts reports whether the identity may attempt a login. A
// counter at or above the maximum with remaining TTL refuses the attempt and
// converts the TTL to an absolute lockout deadline. Reads never mutate state.
func (r *LockoutRepository) CheckLoginAttempts(ctx context.Context, identityID string) (port.LoginAttemptStatus, error) {
	key, err := r.loginKey(identityID)
	if err != nil {
		return port.LoginAttemptStatus{}, err
	}

	count, err := r.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return port.LoginAttemptStatus{CanAttempt: true, AttemptsRemaining: r.cfg.MaxLoginAttempts}, nil
		}
		return port.LoginAttemptStatus{}, fmt.Errorf("redis get login attempts: %w", err)
	}

	if count >= r.cfg.MaxLoginAttempts {
		ttl, err := r.client.TTL(ctx, key).Result()
		if err != nil {
			return port.LoginAttemptStatus{}, fmt.Errorf("redis ttl login attempts: %w", err)
		}
		if ttl > 0 {
			lockedUntil := r.now().Add(ttl)
			return port.LoginAttemptStatus{CanAttempt: false, LockedUntil: &lockedUntil}, nil
		}
	}

	remaining := r.cfg.MaxLoginAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return port.LoginAttemptStatus{CanAttempt: true, AttemptsRemaining: remaining}, nil
}

// RecordFailedLogin atomically increments the failure counter. The window TTL
// is set only when the increment created the key, anchoring the window to the
// first failure; later failures raise the count without extending it.
func (r *LockoutRepository) RecordFailedLogin(ctx context.Context, identityID string) (int, error) {
	key, err := r.loginKey(identityID)
	if err != nil {
		return 0, err
	}

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr login attempts: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.cfg.LockoutWindow).Err(); err != nil {
			return int(count), fmt.Errorf("redis expire login attempts: %w", err)
		}
	}

	return int(count), nil
}

// ResetLoginAttempts deletes the failure counter outright.
func (r *LockoutRepository) ResetLoginAttempts(ctx context.Context, identityID string) error {
	key, err := r.loginKey(identityID)
	if err != nil {
		return err
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete login attempts: %w", err)
	}
	return nil
}

// CheckEmailResend allows a resend when no cooldown marker exists, recording
// the new marker in the same call. SET NX keeps check-and-record atomic under
// concurrent resend requests.
func (r *LockoutRepository) CheckEmailResend(ctx context.Context, identityID string) (port.EmailResendStatus, error) {
	key, err := r.resendKey(identityID)
	if err != nil {
		return port.EmailResendStatus{}, err
	}

	set, err := r.client.SetNX(ctx, key, r.now().Unix(), r.cfg.ResendCooldown).Result()
	if err != nil {
		return port.EmailResendStatus{}, fmt.Errorf("redis setnx email resend: %w", err)
	}
	if set {
		return port.EmailResendStatus{CanResend: true}, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return port.EmailResendStatus{}, fmt.Errorf("redis ttl email resend: %w", err)
	}
	next := r.now().Add(ttl)
	return port.EmailResendStatus{CanResend: false, NextAllowedAt: &next}, nil
}

func (r *LockoutRepository) loginKey(identityID string) (string, error) {
	return r.key(defaultLoginAttemptPrefix, identityID)
}

func (r *LockoutRepository) resendKey(identityID string) (string, error) {
	return r.key(defaultResendPrefix, identityID)
}

func (r *LockoutRepository) key(kind, identityID string) (string, error) {
	trimmed := strings.TrimSpace(identityID)
	if trimmed == "" {
		return "", fmt.Errorf("identity id is required")
	}
	if r.cfg.KeyPrefix != "" {
		return fmt.Sprintf("%s:%s:%s", r.cfg.KeyPrefix, kind, trimmed), nil
	}
	return fmt.Sprintf("%s:%s", kind, trimmed), nil
}
