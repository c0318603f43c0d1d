package mail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/port"
	"github.com/AudereSemper/kokoru-garden-api/internal/infra/logger"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 10 * time.Second
)

// Dispatcher is the fire-and-forget hand-off between auth flows and the email
// collaborator: Enqueue returns immediately and a background worker drains
// the queue. Delivery failures are logged, never propagated, never retried
// here.
type Dispatcher struct {
	sender  port.EmailSender
	logger  *zap.Logger
	queue   chan port.EmailMessage
	wg      sync.WaitGroup
	once    sync.Once
	timeout time.Duration
}

var _ port.EmailDispatcher = (*Dispatcher)(nil)

// NewDispatcher starts the background worker. Close must be called on
// shutdown to drain the queue.
func NewDispatcher(sender port.EmailSender, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		logger:  log,
		queue:   make(chan port.EmailMessage, defaultQueueSize),
		timeout: defaultSendTimeout,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Enqueue hands the message to the worker and returns immediately. When the
// queue is full the message is dropped with a log entry; email delivery never
// blocks an auth flow.
func (d *Dispatcher) Enqueue(msg port.EmailMessage) {
	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("email queue full, dropping message",
			zap.String("template", msg.Template),
			zap.String("to", logger.MaskEmail(msg.To)),
		)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		messageID, err := d.sender.Send(ctx, msg)
		cancel()
		if err != nil {
			d.logger.Error("email delivery failed",
				zap.String("template", msg.Template),
				zap.String("to", logger.MaskEmail(msg.To)),
				zap.Error(err),
			)
			continue
		}
		d.logger.Debug("email delivered",
			zap.String("template", msg.Template),
			zap.String("message_id", messageID),
		)
	}
}

// Close stops accepting messages and waits for the worker to drain the queue.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// LoggingSender records outgoing messages through structured logging without
// delivering them. Used in development and as the default wiring until a real
// provider is configured.
type LoggingSender struct {
	logger *zap.Logger
}

var _ port.EmailSender = (*LoggingSender)(nil)

// NewLoggingSender constructs a sender backed by structured logging.
func NewLoggingSender(log *zap.Logger) *LoggingSender {
	return &LoggingSender{logger: log}
}

// Send logs the message and reports success.
func (s *LoggingSender) Send(_ context.Context, msg port.EmailMessage) (string, error) {
	s.logger.Info("email dispatch (logging sender)",
		zap.String("template", msg.Template),
		zap.String("to", logger.MaskEmail(msg.To)),
	)
	return "logged", nil
}
