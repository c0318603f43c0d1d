package port

import (
	"context"
	"time"
)

// LoginAttemptStatus is the result of a lockout check.
type LoginAttemptStatus struct {
	CanAttempt        bool
	AttemptsRemaining int
	LockedUntil       *time.Time
}

// EmailResendStatus is the result of a resend-cooldown check.
type EmailResendStatus struct {
	CanResend     bool
	NextAllowedAt *time.Time
}

// LockoutGuard tracks failed-login counters and email-resend cooldowns per
// identity against the fast store. Counters self-expire; reads never mutate.
type LockoutGuard interface {
	CheckLoginAttempts(ctx context.Context, identityID string) (LoginAttemptStatus, error)
	// RecordFailedLogin increments the counter atomically and returns the new
	// value. The expiry window is anchored to the first failure.
	RecordFailedLogin(ctx context.Context, identityID string) (int, error)
	ResetLoginAttempts(ctx context.Context, identityID string) error

	// CheckEmailResend consults and, when allowed, records the cooldown in
	// one call.
	CheckEmailResend(ctx context.Context, identityID string) (EmailResendStatus, error)
}
