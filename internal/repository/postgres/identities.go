package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/repository"
)

const uniqueViolationCode = "23505"

// maxBulkOnboardingIDs caps the administrative bulk update fan-out.
const maxBulkOnboardingIDs = 100

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgPool interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IdentityRepository implements port.IdentityRepository backed by PostgreSQL.
type IdentityRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)

// NewIdentityRepository constructs a repository backed by any pool-like
// executor (pgxpool in production, pgxmock in tests).
func NewIdentityRepository(pool pgPool) *IdentityRepository {
	return &IdentityRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *IdentityRepository) WithTx(tx pgx.Tx) *IdentityRepository {
	if tx == nil {
		return r
	}
	return &IdentityRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var identityColumns = []string{
	"id",
	"email",
	"password_hash",
	"auth_provider",
	"google_id",
	"is_email_verified",
	"email_verification_hash",
	"verification_expires_at",
	"password_reset_hash",
	"reset_expires_at",
	"refresh_token",
	"login_attempts",
	"locked_until",
	"has_logged_in",
	"has_completed_onboarding",
	"onboarding_step",
	"last_login",
	"password_changed_at",
	"created_at",
	"updated_at",
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var identity domain.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&identity.AuthProvider,
		&identity.GoogleID,
		&identity.IsEmailVerified,
		&identity.EmailVerificationHash,
		&identity.VerificationExpiresAt,
		&identity.PasswordResetHash,
		&identity.ResetExpiresAt,
		&identity.RefreshToken,
		&identity.LoginAttempts,
		&identity.LockedUntil,
		&identity.HasLoggedIn,
		&identity.HasCompletedOnboarding,
		&identity.OnboardingStep,
		&identity.LastLogin,
		&identity.PasswordChangedAt,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	return &identity, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return repository.ErrUniqueViolation
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Create inserts a new identity row. Duplicate email or google id surfaces as
// repository.ErrUniqueViolation.
func (r *IdentityRepository) Create(ctx context.Context, identity domain.Identity) error {
	stmt, args, err := r.builder.Insert("identities").
		Columns(identityColumns...).
		Values(
			identity.ID,
			identity.Email,
			identity.PasswordHash,
			identity.AuthProvider,
			identity.GoogleID,
			identity.IsEmailVerified,
			identity.EmailVerificationHash,
			identity.VerificationExpiresAt,
			identity.PasswordResetHash,
			identity.ResetExpiresAt,
			identity.RefreshToken,
			identity.LoginAttempts,
			identity.LockedUntil,
			identity.HasLoggedIn,
			identity.HasCompletedOnboarding,
			identity.OnboardingStep,
			identity.LastLogin,
			identity.PasswordChangedAt,
			identity.CreatedAt,
			identity.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert identity sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return mapWriteError("insert identity", err)
	}
	return nil
}

func (r *IdentityRepository) getBy(ctx context.Context, pred squirrel.Eq, what string) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select(identityColumns...).
		From("identities").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity by %s sql: %w", what, err)
	}
	return scanIdentity(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByID retrieves an identity by primary key.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id}, "id")
}

// GetByEmail retrieves an identity by normalized email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getBy(ctx, squirrel.Eq{"email": domain.NormalizeEmail(email)}, "email")
}

// GetByGoogleID retrieves an identity by its federated provider id.
func (r *IdentityRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.Identity, error) {
	return r.getBy(ctx, squirrel.Eq{"google_id": googleID}, "google id")
}

// GetByVerificationHash retrieves an identity by the hash of an
// email-verification token.
func (r *IdentityRepository) GetByVerificationHash(ctx context.Context, tokenHash string) (*domain.Identity, error) {
	return r.getBy(ctx, squirrel.Eq{"email_verification_hash": tokenHash}, "verification hash")
}

// GetByResetHash retrieves an identity by the hash of a password-reset token.
func (r *IdentityRepository) GetByResetHash(ctx context.Context, tokenHash string) (*domain.Identity, error) {
	return r.getBy(ctx, squirrel.Eq{"password_reset_hash": tokenHash}, "reset hash")
}

// GetByRefreshToken retrieves an identity by its stored refresh-token value.
func (r *IdentityRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Identity, error) {
	return r.getBy(ctx, squirrel.Eq{"refresh_token": refreshToken}, "refresh token")
}

// IncrementLoginAttempts bumps the failure counter in a single SQL statement
// so concurrent failed logins never lose updates, and returns the new value.
func (r *IdentityRepository) IncrementLoginAttempts(ctx context.Context, id string) (int, error) {
	stmt := `
		UPDATE identities
		   SET login_attempts = login_attempts + 1,
		       updated_at = NOW()
		 WHERE id = $1
		RETURNING login_attempts
	`

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, id).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment login attempts: %w", err)
	}
	return attempts, nil
}

func (r *IdentityRepository) update(ctx context.Context, op string, build func(squirrel.UpdateBuilder) squirrel.UpdateBuilder, id string) error {
	query := build(r.builder.Update("identities").Set("updated_at", squirrel.Expr("NOW()"))).
		Where(squirrel.Eq{"id": id})

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build %s sql: %w", op, err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return mapWriteError(op, err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetLockedUntil persists the lockout deadline.
func (r *IdentityRepository) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	return r.update(ctx, "set locked until", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("locked_until", until)
	}, id)
}

// ClearLockout resets the failure counter and removes any lockout deadline.
func (r *IdentityRepository) ClearLockout(ctx context.Context, id string) error {
	return r.update(ctx, "clear lockout", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("login_attempts", 0).Set("locked_until", nil)
	}, id)
}

// SetVerificationToken stores a fresh verification-token hash and expiry,
// superseding any previous one.
func (r *IdentityRepository) SetVerificationToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	return r.update(ctx, "set verification token", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("email_verification_hash", tokenHash).Set("verification_expires_at", expiresAt)
	}, id)
}

// MarkEmailVerified flips the verification flag and nulls the token fields.
func (r *IdentityRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.update(ctx, "mark email verified", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("is_email_verified", true).
			Set("email_verification_hash", nil).
			Set("verification_expires_at", nil)
	}, id)
}

// SetResetToken stores a fresh reset-token hash and expiry.
func (r *IdentityRepository) SetResetToken(ctx context.Context, id string, tokenHash string, expiresAt time.Time) error {
	return r.update(ctx, "set reset token", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("password_reset_hash", tokenHash).Set("reset_expires_at", expiresAt)
	}, id)
}

// UpdatePassword persists a new hash, clears the reset-token fields, stamps
// the change time, and resets lockout state in one statement.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	return r.update(ctx, "update password", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("password_hash", passwordHash).
			Set("password_changed_at", changedAt).
			Set("password_reset_hash", nil).
			Set("reset_expires_at", nil).
			Set("login_attempts", 0).
			Set("locked_until", nil)
	}, id)
}

// SetRefreshToken overwrites the single refresh-token slot; nil clears it.
func (r *IdentityRepository) SetRefreshToken(ctx context.Context, id string, refreshToken *string) error {
	return r.update(ctx, "set refresh token", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("refresh_token", refreshToken)
	}, id)
}

// MarkLoggedIn stamps last_login and the has_logged_in flag.
func (r *IdentityRepository) MarkLoggedIn(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, "mark logged in", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("last_login", at).Set("has_logged_in", true)
	}, id)
}

// AttachGoogleID backfills the federated provider id on an existing identity.
func (r *IdentityRepository) AttachGoogleID(ctx context.Context, id string, googleID string) error {
	return r.update(ctx, "attach google id", func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("google_id", googleID)
	}, id)
}

// BulkUpdateOnboarding applies the same onboarding state to at most 100
// identities as a single all-or-nothing transaction.
func (r *IdentityRepository) BulkUpdateOnboarding(ctx context.Context, ids []string, step int, completed bool) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > maxBulkOnboardingIDs {
		return domain.NewValidationError(fmt.Sprintf("bulk update limited to %d identities", maxBulkOnboardingIDs))
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return domain.NewValidationError("identity id must not be blank")
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk onboarding update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmt, args, err := r.builder.Update("identities").
		Set("onboarding_step", step).
		Set("has_completed_onboarding", completed).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build bulk onboarding update sql: %w", err)
	}

	ct, err := tx.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("bulk onboarding update: %w", err)
	}
	if int(ct.RowsAffected()) != len(ids) {
		return repository.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk onboarding update: %w", err)
	}
	return nil
}
