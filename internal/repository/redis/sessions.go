package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
)

const (
	sessionPrefix   = "auth:session"
	refreshPrefix   = "auth:refresh"
	blacklistPrefix = "auth:blacklist"

	scanBatchSize = 100
)

// SessionRepository keeps the ephemeral session artifacts in Redis: session
// records, refresh-token shadow copies, and the access-token blacklist.
type SessionRepository struct {
	client *red.Client
}

var _ port.SessionStore = (*SessionRepository)(nil)

// NewSessionRepository constructs a Redis-backed session store.
func NewSessionRepository(client *red.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// SaveSession stores the session record as JSON under the session id.
func (r *SessionRepository) SaveSession(ctx context.Context, sessionID string, record domain.SessionRecord, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	key := fmt.Sprintf("%s:%s", sessionPrefix, sessionID)
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// SaveRefreshToken shadows the signed refresh token under its session id.
func (r *SessionRepository) SaveRefreshToken(ctx context.Context, sessionID string, token string, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	key := fmt.Sprintf("%s:%s", refreshPrefix, sessionID)
	if err := r.client.Set(ctx, key, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set refresh token: %w", err)
	}
	return nil
}

// BlacklistToken stores a revocation entry keyed by the token hash for the
// remaining lifetime of the token.
func (r *SessionRepository) BlacklistToken(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if strings.TrimSpace(tokenHash) == "" {
		return fmt.Errorf("token hash is required")
	}
	if ttl <= 0 {
		return nil
	}

	key := fmt.Sprintf("%s:%s", blacklistPrefix, tokenHash)
	if err := r.client.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("redis set blacklist entry: %w", err)
	}
	return nil
}

// IsTokenBlacklisted reports whether a revocation entry exists for the hash.
func (r *SessionRepository) IsTokenBlacklisted(ctx context.Context, tokenHash string) (bool, error) {
	key := fmt.Sprintf("%s:%s", blacklistPrefix, tokenHash)
	if _, err := r.client.Get(ctx, key).Result(); err != nil {
		if errors.Is(err, red.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get blacklist entry: %w", err)
	}
	return true, nil
}

// RevokeAllSessions scans every live session record, deletes those owned by
// the identity along with their refresh-token shadows, and returns the count.
// Cost is linear in live sessions system-wide, bounded by active users and
// short TTLs.
func (r *SessionRepository) RevokeAllSessions(ctx context.Context, identityID string) (int, error) {
	if strings.TrimSpace(identityID) == "" {
		return 0, fmt.Errorf("identity id is required")
	}

	removed := 0
	iter := r.client.Scan(ctx, 0, sessionPrefix+":*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		payload, err := r.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, red.Nil) {
				continue
			}
			return removed, fmt.Errorf("redis get session: %w", err)
		}

		var record domain.SessionRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			continue
		}
		if record.IdentityID != identityID {
			continue
		}

		sessionID := strings.TrimPrefix(key, sessionPrefix+":")
		refreshKey := fmt.Sprintf("%s:%s", refreshPrefix, sessionID)
		if err := r.client.Del(ctx, key, refreshKey).Err(); err != nil {
			return removed, fmt.Errorf("redis delete session: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan sessions: %w", err)
	}

	return removed, nil
}
