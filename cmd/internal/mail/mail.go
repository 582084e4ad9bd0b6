// Package mail hands outgoing email to a delivery backend.
//
// Callers build a Message and call Sender.Send; they do not wait for, or
// learn about, delivery beyond the returned hand-off error.
package mail

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// DefaultFrom is the sender address of library notifications.
const DefaultFrom = "lib_admin@mojo.com"

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Sender hands a message to a delivery backend.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes messages to the log instead of delivering them. It is the
// development default.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	s.log.InfoContext(ctx, "mail.send",
		"from", m.From,
		"to", strings.Join(m.To, ","),
		"subject", m.Subject,
		"body", m.Body,
	)
	return nil
}

// Outbox keeps sent messages in memory.
type Outbox struct {
	mu   sync.Mutex
	msgs []Message
	// Err, when set, is returned by Send after recording the message.
	Err error
}

func (o *Outbox) Send(_ context.Context, m Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, m)
	return o.Err
}

// Messages returns a copy of everything sent so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.msgs...)
}
