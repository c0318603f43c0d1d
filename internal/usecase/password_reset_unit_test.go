package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

func pendingReset(id, email, rawToken string, expiresAt time.Time) domain.Identity {
	identity := localIdentity(id, email, "Str0ngP@ss1")
	hash := "hashed:" + rawToken
	identity.PasswordResetHash = &hash
	identity.ResetExpiresAt = &expiresAt
	return identity
}

func TestForgotPasswordKnownEmail(t *testing.T) {
	f := newFixture(t)
	f.identities.add(localIdentity("id-1", "a@b.com", "Str0ngP@ss1"))

	if err := f.svc.ForgotPassword(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}

	stored := f.identities.get("id-1")
	if stored.PasswordResetHash == nil || stored.ResetExpiresAt == nil {
		t.Fatal("expected reset token persisted")
	}

	templates := f.mailer.templates()
	if len(templates) != 1 || templates[0] != "password-reset" {
		t.Fatalf("expected one reset email, got %v", templates)
	}
}

func TestForgotPasswordUnknownEmailLooksIdentical(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.ForgotPassword(context.Background(), "ghost@b.com"); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}
	if len(f.mailer.templates()) != 0 {
		t.Fatal("no email may be sent for an unknown address")
	}
	if len(*f.slept) != 1 {
		t.Fatalf("expected one enumeration delay, got %d", len(*f.slept))
	}
}

func TestForgotPasswordFederatedAccountSkipped(t *testing.T) {
	f := newFixture(t)
	f.identities.add(googleIdentity("id-1", "a@b.com", "google-1"))

	if err := f.svc.ForgotPassword(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("expected nil for federated account, got %v", err)
	}

	stored := f.identities.get("id-1")
	if stored.PasswordResetHash != nil {
		t.Fatal("federated accounts must not receive reset tokens")
	}
	if len(f.mailer.templates()) != 0 {
		t.Fatal("no email may be sent for a federated account")
	}
	if len(*f.slept) != 1 {
		t.Fatalf("expected one enumeration delay, got %d", len(*f.slept))
	}
}

func TestForgotPasswordMalformedEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ForgotPassword(context.Background(), "not-an-email")
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResetPasswordSuccess(t *testing.T) {
	f := newFixture(t)
	identity := pendingReset("id-1", "a@b.com", "tok-1", time.Now().Add(30*time.Minute))
	identity.LoginAttempts = 4
	until := time.Now().Add(5 * time.Minute)
	identity.LockedUntil = &until
	f.identities.add(identity)

	if err := f.svc.ResetPassword(context.Background(), "tok-1", "N3wStr0ng!Pw"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	stored := f.identities.get("id-1")
	if stored.PasswordHash == nil || *stored.PasswordHash != "hash:N3wStr0ng!Pw" {
		t.Fatal("expected the new password hash installed")
	}
	if stored.PasswordResetHash != nil || stored.ResetExpiresAt != nil {
		t.Fatal("expected reset token fields cleared")
	}
	if stored.LoginAttempts != 0 || stored.LockedUntil != nil {
		t.Fatal("expected lockout state cleared with the password change")
	}
	if stored.PasswordChangedAt == nil {
		t.Fatal("expected passwordChangedAt stamped")
	}

	templates := f.mailer.templates()
	if len(templates) != 1 || templates[0] != "password-changed" {
		t.Fatalf("expected one password-changed email, got %v", templates)
	}
}

func TestResetPasswordUnknownTokenIsInvalid(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ResetPassword(context.Background(), "no-such-token", "N3wStr0ng!Pw")
	if !domain.IsKind(err, domain.KindInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestResetPasswordExpiredTokenIsDistinguished(t *testing.T) {
	f := newFixture(t)
	f.identities.add(pendingReset("id-1", "a@b.com", "tok-1", time.Now().Add(-time.Minute)))

	err := f.svc.ResetPassword(context.Background(), "tok-1", "N3wStr0ng!Pw")
	if !domain.IsKind(err, domain.KindTokenExpired) {
		t.Fatalf("expected token expired error, got %v", err)
	}

	stored := f.identities.get("id-1")
	if *stored.PasswordHash != "hash:Str0ngP@ss1" {
		t.Fatal("expired token must not change the password")
	}
}

func TestResetPasswordRejectsWeakReplacement(t *testing.T) {
	f := newFixture(t)
	f.identities.add(pendingReset("id-1", "a@b.com", "tok-1", time.Now().Add(time.Hour)))

	err := f.svc.ResetPassword(context.Background(), "tok-1", "short")
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
