package mail_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/internal/jobs"
	"github.com/garnizeh/marketplace/internal/mail"
)

type fakeQueue struct {
	types    []string
	payloads []any
	err      error
}

func (f *fakeQueue) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.types = append(f.types, typ)
	f.payloads = append(f.payloads, payload)
	return "job-1", nil
}

type recordingMailer struct{ sent []mail.Email }

func (r *recordingMailer) Send(ctx context.Context, m mail.Email) error {
	r.sent = append(r.sent, m)
	return nil
}

func TestOutbox_EnqueuesAndSkipsEmptyRecipients(t *testing.T) {
	q := &fakeQueue{}
	o := mail.NewOutbox(q, 5, nil)
	ctx := context.Background()

	if err := o.Enqueue(ctx, mail.Email{To: "anna@example.com", Subject: "New quote"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := o.Enqueue(ctx, mail.Email{To: "  ", Subject: "nobody"}); err != nil {
		t.Fatalf("Enqueue without recipient: %v", err)
	}
	if len(q.types) != 1 || q.types[0] != mail.JobType {
		t.Fatalf("expected one %s job, got %v", mail.JobType, q.types)
	}

	q.err = errors.New("db locked")
	if err := o.Enqueue(ctx, mail.Email{To: "a@b.c"}); err == nil {
		t.Fatalf("expected enqueue error to surface")
	}
}

func TestHandler_DecodesPayload(t *testing.T) {
	m := &recordingMailer{}
	h := mail.Handler(m)
	payload, _ := json.Marshal(mail.Email{To: "luca@example.com", Subject: "Accepted", Body: "ok"})

	if err := h(context.Background(), &jobs.Job{Type: mail.JobType, Payload: payload}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(m.sent) != 1 || m.sent[0].To != "luca@example.com" {
		t.Fatalf("unexpected sent mail %+v", m.sent)
	}
	if err := h(context.Background(), &jobs.Job{Type: mail.JobType, Payload: []byte("{")}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRender_StripsHeaderInjection(t *testing.T) {
	msg := string(mail.Render("noreply@market.test", mail.Email{To: "a@b.c", Subject: "Hi\r\nBcc: evil@x.y", Body: "line1\nline2"}))
	if strings.Contains(msg, "\r\nBcc:") {
		t.Fatalf("subject must not inject headers: %q", msg)
	}
	if !strings.HasSuffix(msg, "line1\r\nline2") {
		t.Fatalf("body lines must use CRLF: %q", msg)
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	m := mail.NewSMTPMailer(config.MailConfig{Host: "smtp.example.com", From: "noreply@market.test", Username: "u", Password: "p"})
	var gotAddr string
	var gotTo []string
	m.SetSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo = addr, to
		if a == nil {
			t.Errorf("expected auth when a username is configured")
		}
		return nil
	})

	if err := m.Send(context.Background(), mail.Email{To: "x@y.z", Subject: "s"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || len(gotTo) != 1 || gotTo[0] != "x@y.z" {
		t.Fatalf("unexpected send args %s %v", gotAddr, gotTo)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Send(ctx, mail.Email{To: "x@y.z"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestNew_SelectsDriver(t *testing.T) {
	if m, err := mail.New(config.MailConfig{Driver: "log"}, nil); err != nil {
		t.Fatalf("log driver: %v", err)
	} else if _, ok := m.(*mail.LogMailer); !ok {
		t.Fatalf("expected LogMailer, got %T", m)
	}
	if _, err := mail.New(config.MailConfig{Driver: "pigeon"}, nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
