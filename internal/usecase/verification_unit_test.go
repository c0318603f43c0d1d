package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

func pendingVerification(id, email, rawToken string, expiresAt time.Time) domain.Identity {
	identity := localIdentity(id, email, "Str0ngP@ss1")
	hash := "hashed:" + rawToken
	identity.EmailVerificationHash = &hash
	identity.VerificationExpiresAt = &expiresAt
	return identity
}

func TestVerifyEmailSuccess(t *testing.T) {
	f := newFixture(t)
	f.identities.add(pendingVerification("id-1", "a@b.com", "tok-1", time.Now().Add(time.Hour)))

	user, err := f.svc.VerifyEmail(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	if !user.IsEmailVerified {
		t.Fatal("expected verified identity in the response")
	}

	stored := f.identities.get("id-1")
	if !stored.IsEmailVerified {
		t.Fatal("expected verified flag persisted")
	}
	if stored.EmailVerificationHash != nil || stored.VerificationExpiresAt != nil {
		t.Fatal("expected verification token fields cleared")
	}
}

func TestVerifyEmailUnknownTokenIsInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyEmail(context.Background(), "no-such-token")
	if !domain.IsKind(err, domain.KindInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestVerifyEmailExpiredTokenIsDistinguished(t *testing.T) {
	f := newFixture(t)
	f.identities.add(pendingVerification("id-1", "a@b.com", "tok-1", time.Now().Add(-time.Minute)))

	_, err := f.svc.VerifyEmail(context.Background(), "tok-1")
	if !domain.IsKind(err, domain.KindTokenExpired) {
		t.Fatalf("expected token expired error, got %v", err)
	}

	// The token row survives an expired redemption attempt.
	stored := f.identities.get("id-1")
	if stored.IsEmailVerified {
		t.Fatal("expired token must not verify the email")
	}
}

func TestVerifyEmailAfterLoginSendsWelcome(t *testing.T) {
	f := newFixture(t)
	identity := pendingVerification("id-1", "a@b.com", "tok-1", time.Now().Add(time.Hour))
	identity.HasLoggedIn = true
	f.identities.add(identity)

	if _, err := f.svc.VerifyEmail(context.Background(), "tok-1"); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}

	templates := f.mailer.templates()
	if len(templates) != 1 || templates[0] != "welcome" {
		t.Fatalf("expected one welcome email, got %v", templates)
	}
}

func TestResendVerificationIssuesNewToken(t *testing.T) {
	f := newFixture(t)
	f.identities.add(pendingVerification("id-1", "a@b.com", "tok-old", time.Now().Add(time.Hour)))

	if err := f.svc.ResendVerification(context.Background(), "id-1"); err != nil {
		t.Fatalf("ResendVerification returned error: %v", err)
	}

	stored := f.identities.get("id-1")
	if stored.EmailVerificationHash == nil || *stored.EmailVerificationHash == "hashed:tok-old" {
		t.Fatal("expected the old verification hash replaced")
	}

	templates := f.mailer.templates()
	if len(templates) != 1 || templates[0] != "email-verification" {
		t.Fatalf("expected one verification email, got %v", templates)
	}
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	f := newFixture(t)
	identity := localIdentity("id-1", "a@b.com", "Str0ngP@ss1")
	identity.IsEmailVerified = true
	f.identities.add(identity)

	err := f.svc.ResendVerification(context.Background(), "id-1")
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResendVerificationCooldown(t *testing.T) {
	f := newFixture(t)
	f.identities.add(pendingVerification("id-1", "a@b.com", "tok-old", time.Now().Add(time.Hour)))
	f.lockout.resendDeny = true
	f.lockout.nextAllowed = time.Now().Add(45 * time.Second)

	err := f.svc.ResendVerification(context.Background(), "id-1")
	if !domain.IsKind(err, domain.KindRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}

	rated, _ := domain.AsError(err)
	if rated.RetryAfter <= 0 || rated.RetryAfter > time.Minute {
		t.Fatalf("unexpected retryAfter: %v", rated.RetryAfter)
	}
	if len(f.mailer.templates()) != 0 {
		t.Fatal("no email may be sent while cooling down")
	}
}
