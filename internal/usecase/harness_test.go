package usecase

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

type testFixture struct {
	svc        *AuthService
	identities *fakeIdentityRepo
	tokens     *fakeTokenEngine
	lockout    *fakeLockout
	mailer     *fakeMailer
	federator  *fakeFederator
	slept      *[]time.Duration
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()

	identities := newFakeIdentityRepo()
	tokens := newFakeTokenEngine()
	lockout := newFakeLockout()
	mailer := &fakeMailer{}
	federator := &fakeFederator{}

	svc := NewAuthService(
		identities,
		tokens,
		fakeHasher{},
		fakePolicy{},
		lockout,
		federator,
		mailer,
		fakePublisher{},
		zaptest.NewLogger(t),
	)

	slept := []time.Duration{}
	svc.WithSleep(func(d time.Duration) { slept = append(slept, d) })

	return &testFixture{
		svc:        svc,
		identities: identities,
		tokens:     tokens,
		lockout:    lockout,
		mailer:     mailer,
		federator:  federator,
		slept:      &slept,
	}
}

func localIdentity(id, email, password string) domain.Identity {
	hash := "hash:" + password
	now := time.Now().UTC()
	return domain.Identity{
		ID:           id,
		Email:        email,
		PasswordHash: &hash,
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func googleIdentity(id, email, googleID string) domain.Identity {
	now := time.Now().UTC()
	identity := domain.Identity{
		ID:              id,
		Email:           email,
		AuthProvider:    domain.ProviderGoogle,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if googleID != "" {
		identity.GoogleID = &googleID
	}
	return identity
}
