package reset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/distribuidora-pyg/workers-go/internal/mail"
	"github.com/distribuidora-pyg/workers-go/internal/messaging"
)

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func newTestHandler(t *testing.T, mailer mail.Mailer) *Handler {
	t.Helper()
	h, err := NewHandler(mailer, zerolog.Nop())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	h.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return h
}

const validBody = `{"requestId":"req-1","to":"user@example.com","reset_link":"https://tienda.example/reset?token=abc"}`

func TestHandleSendsRenderedEmail(t *testing.T) {
	mailer := &fakeMailer{}
	h := newTestHandler(t, mailer)

	got := h.Handle(context.Background(), []byte(validBody))
	if got != messaging.Accept {
		t.Fatalf("decision = %v, want accept", got)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.sent))
	}

	msg := mailer.sent[0]
	if msg.To != "user@example.com" {
		t.Fatalf("unexpected recipient: %s", msg.To)
	}
	if msg.Subject != subject {
		t.Fatalf("unexpected subject: %s", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "https://tienda.example/reset?token=abc") {
		t.Fatalf("reset link missing from body:\n%s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "2026") {
		t.Fatalf("current year missing from body:\n%s", msg.HTML)
	}
}

func TestHandleInvalidPayloadDiscards(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "not json", body: `nope`},
		{name: "missing to", body: `{"requestId":"req-2","reset_link":"https://x.example/r"}`},
		{name: "missing link", body: `{"requestId":"req-3","to":"user@example.com"}`},
		{name: "bad email", body: `{"requestId":"req-4","to":"not-an-email","reset_link":"https://x.example/r"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mailer := &fakeMailer{}
			h := newTestHandler(t, mailer)

			if got := h.Handle(context.Background(), []byte(tc.body)); got != messaging.Discard {
				t.Fatalf("decision = %v, want discard", got)
			}
			if len(mailer.sent) != 0 {
				t.Fatalf("no email should be sent for invalid payloads")
			}
		})
	}
}

func TestHandleTransportFailureRetries(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	h := newTestHandler(t, mailer)

	if got := h.Handle(context.Background(), []byte(validBody)); got != messaging.Retry {
		t.Fatalf("decision = %v, want retry", got)
	}
}

func TestLoadTemplateUnknownName(t *testing.T) {
	if _, err := loadTemplate("does-not-exist"); err == nil {
		t.Fatalf("expected template not found error")
	}
}
