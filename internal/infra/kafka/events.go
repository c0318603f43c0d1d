package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	IdentityID string           `json:"identity_id,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	Version    string           `json:"version"`
	Payload    any              `json:"payload"`
	Metadata   envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, identityID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:    id,
		EventType:  eventType,
		IdentityID: identityID,
		Timestamp:  ts.UTC(),
		Version:    schemaVersion,
		Payload:    payload,
		Metadata:   metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes garden.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		IdentityID         string         `json:"identity_id"`
		Email              string         `json:"email"`
		RegisteredAt       time.Time      `json:"registered_at"`
		RegistrationMethod string         `json:"registration_method"`
		Metadata           map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID:         event.IdentityID,
		Email:              event.Email,
		RegisteredAt:       event.RegisteredAt.UTC(),
		RegistrationMethod: event.RegistrationMethod,
		Metadata:           event.Metadata,
	}

	return p.publish(ctx, event.EventID, "garden.user.registered", event.IdentityID, event.RegisteredAt, payload)
}

// PublishPasswordChanged publishes garden.user.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		IdentityID string         `json:"identity_id"`
		ChangedAt  time.Time      `json:"changed_at"`
		ChangedBy  string         `json:"changed_by"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID: event.IdentityID,
		ChangedAt:  event.ChangedAt.UTC(),
		ChangedBy:  event.ChangedBy,
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "garden.user.password.changed", event.IdentityID, event.ChangedAt, payload)
}

// PublishPasswordResetRequested publishes garden.user.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		IdentityID        string         `json:"identity_id"`
		RequestedAt       time.Time      `json:"requested_at"`
		MaskedDestination string         `json:"masked_destination,omitempty"`
		ExpiresAt         time.Time      `json:"expires_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID:        event.IdentityID,
		RequestedAt:       event.RequestedAt.UTC(),
		MaskedDestination: event.MaskedDestination,
		ExpiresAt:         event.ExpiresAt.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "garden.user.password.reset_requested", event.IdentityID, event.RequestedAt, payload)
}

// PublishSessionRevoked publishes garden.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		IdentityID      string         `json:"identity_id"`
		SessionsRemoved int            `json:"sessions_removed"`
		RevokedAt       time.Time      `json:"revoked_at"`
		Reason          string         `json:"reason"`
		Metadata        map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID:      event.IdentityID,
		SessionsRemoved: event.SessionsRemoved,
		RevokedAt:       event.RevokedAt.UTC(),
		Reason:          event.Reason,
		Metadata:        event.Metadata,
	}

	return p.publish(ctx, event.EventID, "garden.session.revoked", event.IdentityID, event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
