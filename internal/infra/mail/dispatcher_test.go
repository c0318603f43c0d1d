package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []port.EmailMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg port.EmailMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, msg)
	return "msg-1", nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestDispatcherDeliversEnqueuedMessages(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, zaptest.NewLogger(t))

	d.Enqueue(port.EmailMessage{To: "a@b.com", Template: "verification", Data: map[string]any{"token": "tok"}})
	d.Enqueue(port.EmailMessage{To: "a@b.com", Template: "welcome"})
	d.Close()

	require.Equal(t, 2, sender.count())
	assert.Equal(t, "verification", sender.sent[0].Template)
	assert.Equal(t, "welcome", sender.sent[1].Template)
}

func TestDispatcherSwallowsDeliveryFailures(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp unavailable")}
	d := NewDispatcher(sender, zaptest.NewLogger(t))

	// Must not panic or propagate anywhere.
	d.Enqueue(port.EmailMessage{To: "a@b.com", Template: "reset"})
	d.Close()

	assert.Equal(t, 0, sender.count())
}

func TestDispatcherEnqueueDoesNotBlock(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, zaptest.NewLogger(t))
	defer d.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			d.Enqueue(port.EmailMessage{To: "a@b.com", Template: "welcome"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Enqueue blocked")
	}
}

func TestLoggingSender(t *testing.T) {
	s := NewLoggingSender(zaptest.NewLogger(t))

	id, err := s.Send(context.Background(), port.EmailMessage{To: "a@b.com", Template: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, "logged", id)
}
