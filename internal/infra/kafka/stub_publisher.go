package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, identityID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("identity_id", identityID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs garden.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"identity_id":         event.IdentityID,
		"email":               event.Email,
		"registered_at":       event.RegisteredAt,
		"registration_method": event.RegistrationMethod,
		"metadata":            event.Metadata,
	}
	p.logEvent("garden.user.registered", event.IdentityID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordChanged logs garden.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"identity_id": event.IdentityID,
		"changed_at":  event.ChangedAt,
		"changed_by":  event.ChangedBy,
		"metadata":    event.Metadata,
	}
	p.logEvent("garden.user.password.changed", event.IdentityID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs garden.user.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"identity_id":        event.IdentityID,
		"requested_at":       event.RequestedAt,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent("garden.user.password.reset_requested", event.IdentityID, event.RequestedAt, payload)
	return nil
}

// PublishSessionRevoked logs garden.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"identity_id":      event.IdentityID,
		"sessions_removed": event.SessionsRemoved,
		"revoked_at":       event.RevokedAt,
		"reason":           event.Reason,
		"metadata":         event.Metadata,
	}
	p.logEvent("garden.session.revoked", event.IdentityID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
