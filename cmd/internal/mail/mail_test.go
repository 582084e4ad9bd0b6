package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRender_HeadersAndCRLF(t *testing.T) {
	t.Parallel()

	raw := string(render(Message{
		From:    DefaultFrom,
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Hello\r\nBcc: evil@example.com",
		Body:    "line one\nline two",
	}))

	if !strings.Contains(raw, "Subject: HelloBcc: evil@example.com\r\n") {
		t.Fatalf("header injection not neutralized:\n%s", raw)
	}
	if !strings.Contains(raw, "To: a@example.com, b@example.com\r\n") {
		t.Fatalf("missing To header:\n%s", raw)
	}
	if !strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two") {
		t.Fatalf("body not CRLF-normalized:\n%q", raw)
	}
}

func TestNewSMTPSender_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewSMTPSender(SMTPConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := NewSMTPSender(SMTPConfig{Addr: "no-port"}); err == nil {
		t.Fatalf("expected error for addr without port")
	}
	if _, err := NewSMTPSender(SMTPConfig{Addr: "localhost:25"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOutbox(t *testing.T) {
	t.Parallel()

	var o Outbox
	_ = o.Send(context.Background(), Message{Subject: "one"})
	o.Err = errors.New("down")
	if err := o.Send(context.Background(), Message{Subject: "two"}); err == nil {
		t.Fatalf("expected configured error")
	}
	if got := len(o.Messages()); got != 2 {
		t.Fatalf("messages = %d", got)
	}
}
