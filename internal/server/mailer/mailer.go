// Package mailer delivers the one-time code emails.
package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/minimart/storefront/internal/logging"
)

// Message is a plain-text email.
type Message struct {
	Subject string
	To      []string
	Body    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender records that a message would have been sent. The body holds the
// code and is not logged.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "mail not delivered, no SMTP server configured", "subject", msg.Subject, "to", msg.To)
	return nil
}

// Dispatcher sends messages in the background so that a slow or failing mail
// server neither delays nor fails the request that issued the code.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  logging.Logger
	wg      sync.WaitGroup

	// onResult is called after every attempt; metrics hook in here.
	onResult func(err error)
}

func NewDispatcher(sender Sender, timeout time.Duration, l logging.Logger) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		timeout: timeout,
		logger:  l.With("module", "mail_dispatcher"),
	}
}

// OnResult registers f to be called with the outcome of each delivery.
func (d *Dispatcher) OnResult(f func(err error)) {
	d.onResult = f
}

// Dispatch starts delivery and returns at once. Cancellation of ctx does not
// abort the delivery; only the dispatcher timeout does.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		err := d.sender.Send(sendCtx, msg)
		if err != nil {
			d.logger.Warn(sendCtx, "mail delivery failed", "subject", msg.Subject, "error", err)
		}
		if d.onResult != nil {
			d.onResult(err)
		}
	}()
}

// Wait blocks until every dispatched message has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
