package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/repository"
)

// fakeIdentityRepo is an in-memory port.IdentityRepository.
type fakeIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]*domain.Identity
	failWith   error
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{identities: make(map[string]*domain.Identity)}
}

func (r *fakeIdentityRepo) add(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := identity
	r.identities[identity.ID] = &clone
}

func (r *fakeIdentityRepo) get(id string) domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.identities[id]
}

func (r *fakeIdentityRepo) Create(_ context.Context, identity domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, existing := range r.identities {
		if existing.Email == identity.Email {
			return repository.ErrUniqueViolation
		}
	}
	clone := identity
	r.identities[identity.ID] = &clone
	return nil
}

func (r *fakeIdentityRepo) findBy(match func(*domain.Identity) bool) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, identity := range r.identities {
		if match(identity) {
			clone := *identity
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeIdentityRepo) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	return r.findBy(func(i *domain.Identity) bool { return i.ID == id })
}

func (r *fakeIdentityRepo) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	return r.findBy(func(i *domain.Identity) bool { return i.Email == email })
}

func (r *fakeIdentityRepo) GetByGoogleID(_ context.Context, googleID string) (*domain.Identity, error) {
	return r.findBy(func(i *domain.Identity) bool { return i.GoogleID != nil && *i.GoogleID == googleID })
}

func (r *fakeIdentityRepo) GetByVerificationHash(_ context.Context, hash string) (*domain.Identity, error) {
	return r.findBy(func(i *domain.Identity) bool {
		return i.EmailVerificationHash != nil && *i.EmailVerificationHash == hash
	})
}

func (r *fakeIdentityRepo) GetByResetHash(_ context.Context, hash string) (*domain.Identity, error) {
	return r.findBy(func(i *domain.Identity) bool {
		return i.PasswordResetHash != nil && *i.PasswordResetHash == hash
	})
}

func (r *fakeIdentityRepo) GetByRefreshToken(_ context.Context, token string) (*domain.Identity, error) {
	return r.findBy(func(i *domain.Identity) bool {
		return i.RefreshToken != nil && *i.RefreshToken == token
	})
}

func (r *fakeIdentityRepo) mutate(id string, apply func(*domain.Identity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	identity, ok := r.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	apply(identity)
	return nil
}

func (r *fakeIdentityRepo) IncrementLoginAttempts(_ context.Context, id string) (int, error) {
	var attempts int
	err := r.mutate(id, func(i *domain.Identity) {
		i.LoginAttempts++
		attempts = i.LoginAttempts
	})
	return attempts, err
}

func (r *fakeIdentityRepo) SetLockedUntil(_ context.Context, id string, until time.Time) error {
	return r.mutate(id, func(i *domain.Identity) { i.LockedUntil = &until })
}

func (r *fakeIdentityRepo) ClearLockout(_ context.Context, id string) error {
	return r.mutate(id, func(i *domain.Identity) {
		i.LoginAttempts = 0
		i.LockedUntil = nil
	})
}

func (r *fakeIdentityRepo) SetVerificationToken(_ context.Context, id, hash string, expiresAt time.Time) error {
	return r.mutate(id, func(i *domain.Identity) {
		i.EmailVerificationHash = &hash
		i.VerificationExpiresAt = &expiresAt
	})
}

func (r *fakeIdentityRepo) MarkEmailVerified(_ context.Context, id string) error {
	return r.mutate(id, func(i *domain.Identity) {
		i.IsEmailVerified = true
		i.EmailVerificationHash = nil
		i.VerificationExpiresAt = nil
	})
}

func (r *fakeIdentityRepo) SetResetToken(_ context.Context, id, hash string, expiresAt time.Time) error {
	return r.mutate(id, func(i *domain.Identity) {
		i.PasswordResetHash = &hash
		i.ResetExpiresAt = &expiresAt
	})
}

func (r *fakeIdentityRepo) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	return r.mutate(id, func(i *domain.Identity) {
		i.PasswordHash = &passwordHash
		i.PasswordChangedAt = &changedAt
		i.PasswordResetHash = nil
		i.ResetExpiresAt = nil
		i.LoginAttempts = 0
		i.LockedUntil = nil
	})
}

func (r *fakeIdentityRepo) SetRefreshToken(_ context.Context, id string, token *string) error {
	return r.mutate(id, func(i *domain.Identity) { i.RefreshToken = token })
}

func (r *fakeIdentityRepo) MarkLoggedIn(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(i *domain.Identity) {
		i.LastLogin = &at
		i.HasLoggedIn = true
	})
}

func (r *fakeIdentityRepo) AttachGoogleID(_ context.Context, id, googleID string) error {
	return r.mutate(id, func(i *domain.Identity) { i.GoogleID = &googleID })
}

func (r *fakeIdentityRepo) BulkUpdateOnboarding(_ context.Context, ids []string, step int, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.identities[id]; !ok {
			return repository.ErrNotFound
		}
	}
	for _, id := range ids {
		r.identities[id].OnboardingStep = step
		r.identities[id].HasCompletedOnboarding = completed
	}
	return nil
}

// fakeTokenEngine mints deterministic tokens.
type fakeTokenEngine struct {
	mu      sync.Mutex
	counter int
	revoked map[string]int
	// verifyClaims, when set, is returned by VerifyRefreshToken.
	verifyClaims *domain.TokenClaims
	verifyErr    error
}

func newFakeTokenEngine() *fakeTokenEngine {
	return &fakeTokenEngine{revoked: make(map[string]int)}
}

func (e *fakeTokenEngine) next(kind string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counter++
	return fmt.Sprintf("%s-token-%d", kind, e.counter)
}

func (e *fakeTokenEngine) GenerateAccessToken(_ context.Context, identityID, _ string) (string, error) {
	return e.next("access"), nil
}

func (e *fakeTokenEngine) GenerateRefreshToken(_ context.Context, identityID, _ string) (string, error) {
	return e.next("refresh"), nil
}

func (e *fakeTokenEngine) VerifyAccessToken(_ context.Context, _ string) (*domain.TokenClaims, error) {
	return e.verifyClaims, e.verifyErr
}

func (e *fakeTokenEngine) VerifyRefreshToken(_ context.Context, _ string) (*domain.TokenClaims, error) {
	if e.verifyErr != nil {
		return nil, e.verifyErr
	}
	return e.verifyClaims, nil
}

func (e *fakeTokenEngine) GenerateRandomToken() (string, error) {
	return e.next("random"), nil
}

func (e *fakeTokenEngine) HashToken(token string) string {
	return "hashed:" + token
}

func (e *fakeTokenEngine) RevokeToken(_ context.Context, token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.revoked[token]++
	return nil
}

func (e *fakeTokenEngine) RevokeAllUserTokens(_ context.Context, identityID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.revoked[identityID]++
	return 2, nil
}

func (e *fakeTokenEngine) RefreshTokenTTL() time.Duration { return 7 * 24 * time.Hour }

// fakeHasher marks hashes by prefix; Verify accepts matching plaintext.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hash:" + password, nil }
func (fakeHasher) Verify(encoded, password string) bool { return encoded == "hash:"+password }
func (fakeHasher) NeedsRehash(string) bool              { return false }

// fakePolicy accepts everything except passwords shorter than 8 runes.
type fakePolicy struct{}

func (fakePolicy) ValidateStrength(password string) port.PasswordStrength {
	if len(password) < 8 {
		return port.PasswordStrength{Errors: []string{"password must be at least 8 characters long"}}
	}
	return port.PasswordStrength{IsValid: true, Score: 4}
}

func (fakePolicy) GenerateTemporaryPassword() (string, error) { return "Temp0rary!Pw", nil }

// fakeLockout is a scriptable port.LockoutGuard.
type fakeLockout struct {
	mu          sync.Mutex
	failures    map[string]int
	maxAttempts int
	lockedUntil map[string]time.Time
	resendDeny  bool
	nextAllowed time.Time
	resets      []string
}

func newFakeLockout() *fakeLockout {
	return &fakeLockout{
		failures:    make(map[string]int),
		lockedUntil: make(map[string]time.Time),
		maxAttempts: 5,
	}
}

func (l *fakeLockout) CheckLoginAttempts(_ context.Context, identityID string) (port.LoginAttemptStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.lockedUntil[identityID]; ok {
		return port.LoginAttemptStatus{CanAttempt: false, LockedUntil: &until}, nil
	}
	if l.failures[identityID] >= l.maxAttempts {
		until := time.Now().Add(15 * time.Minute)
		return port.LoginAttemptStatus{CanAttempt: false, LockedUntil: &until}, nil
	}
	return port.LoginAttemptStatus{
		CanAttempt:        true,
		AttemptsRemaining: l.maxAttempts - l.failures[identityID],
	}, nil
}

func (l *fakeLockout) RecordFailedLogin(_ context.Context, identityID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[identityID]++
	return l.failures[identityID], nil
}

func (l *fakeLockout) ResetLoginAttempts(_ context.Context, identityID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, identityID)
	l.resets = append(l.resets, identityID)
	return nil
}

func (l *fakeLockout) CheckEmailResend(_ context.Context, identityID string) (port.EmailResendStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resendDeny {
		next := l.nextAllowed
		return port.EmailResendStatus{CanResend: false, NextAllowedAt: &next}, nil
	}
	return port.EmailResendStatus{CanResend: true}, nil
}

// fakeMailer records enqueued messages.
type fakeMailer struct {
	mu       sync.Mutex
	messages []port.EmailMessage
}

func (m *fakeMailer) Enqueue(msg port.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *fakeMailer) templates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	for i, msg := range m.messages {
		out[i] = msg.Template
	}
	return out
}

// fakePublisher drops events; publication is fire-and-forget.
type fakePublisher struct{}

func (fakePublisher) PublishUserRegistered(context.Context, domain.UserRegisteredEvent) error {
	return nil
}
func (fakePublisher) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return nil
}
func (fakePublisher) PublishPasswordResetRequested(context.Context, domain.PasswordResetRequestedEvent) error {
	return nil
}
func (fakePublisher) PublishSessionRevoked(context.Context, domain.SessionRevokedEvent) error {
	return nil
}

// fakeFederator returns a scripted profile.
type fakeFederator struct {
	profile *domain.GoogleProfile
	err     error
}

func (f *fakeFederator) ExchangeCode(context.Context, string) (*domain.GoogleProfile, error) {
	return f.profile, f.err
}

var _ port.IdentityRepository = (*fakeIdentityRepo)(nil)
var _ port.TokenEngine = (*fakeTokenEngine)(nil)
var _ port.PasswordHasher = fakeHasher{}
var _ port.PasswordPolicy = fakePolicy{}
var _ port.LockoutGuard = (*fakeLockout)(nil)
var _ port.EmailDispatcher = (*fakeMailer)(nil)
var _ port.EventPublisher = fakePublisher{}
var _ port.GoogleFederator = (*fakeFederator)(nil)
