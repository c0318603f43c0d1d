package port

import "context"

// EmailMessage is the rendered message handed to the email collaborator.
type EmailMessage struct {
	To       string
	Template string
	Data     map[string]any
}

// EmailSender delivers a single message. Implementations own retries; the
// auth engine never retries here.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (messageID string, err error)
}

// EmailDispatcher is the fire-and-forget hand-off used by the auth flows.
// Enqueue returns immediately; delivery failures are logged by the
// dispatcher, never propagated to the caller.
type EmailDispatcher interface {
	Enqueue(msg EmailMessage)
}
