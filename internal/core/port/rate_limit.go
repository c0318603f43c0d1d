package port

import (
	"context"
	"time"
)

// RateLimitStore persists per-identifier request attempts for sliding-window
// throttling at the transport edge.
type RateLimitStore interface {
	// TrimWindow drops attempts that fell out of the window.
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	// CountAttempts counts the attempts inside the window ending at reference.
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	// RecordAttempt appends an attempt at the given instant.
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	// OldestAttempt returns the earliest attempt still inside the window; the
	// bool reports whether any attempt exists.
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
