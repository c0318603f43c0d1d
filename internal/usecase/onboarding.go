package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/repository"
)

// BulkUpdateOnboarding is the administrative passthrough for onboarding
// state. The repository enforces the 100-id cap and all-or-nothing semantics.
func (s *AuthService) BulkUpdateOnboarding(ctx context.Context, ids []string, step int, completed bool) error {
	if len(ids) == 0 {
		return domain.NewValidationError("at least one identity id is required")
	}
	if step < 0 {
		return domain.NewValidationError("onboarding step must not be negative")
	}

	if err := s.identities.BulkUpdateOnboarding(ctx, ids, step, completed); err != nil {
		if domain.IsKind(err, domain.KindValidation) {
			return err
		}
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewValidationError("one or more identity ids do not exist")
		}
		s.logger.Error("bulk onboarding update failed", zap.Int("ids", len(ids)), zap.Error(err))
		return domain.NewDatabaseError(err)
	}
	return nil
}
